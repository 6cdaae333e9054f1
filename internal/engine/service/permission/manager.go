// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package permission

import (
	"context"
	"fmt"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/pkg/log"
)

// Manager 权限管理界面使用的写操作。
// 只保证单个 (用户, 模块) 内的原子性，跨用户批量设置不在此处提供
type Manager struct {
	store    *Store
	resolver *Resolver
	users    repo.IUserRepository
}

func NewManager(store *Store, resolver *Resolver, users repo.IUserRepository) *Manager {
	return &Manager{store: store, resolver: resolver, users: users}
}

func validate(module model.Module, actions ...model.Action) error {
	if !module.Valid() {
		return fmt.Errorf("module %q: %w", module, core.ErrInvalidArgument)
	}
	for _, a := range actions {
		if !a.Valid() {
			return fmt.Errorf("action %q: %w", a, core.ErrInvalidArgument)
		}
	}
	return nil
}

// SetOverride upsert 单条覆盖项；值未变化时不写库
func (m *Manager) SetOverride(ctx context.Context, userID uint64, module model.Module, action model.Action, value bool) error {
	if err := validate(module, action); err != nil {
		return err
	}
	if _, err := m.users.GetUser(ctx, userID); err != nil {
		return err
	}

	if o, err := m.store.Get(ctx, userID); err == nil {
		if cur, ok := o.Lookup(module, action); ok && cur == value {
			return nil
		}
	}

	if err := m.store.Set(ctx, userID, map[cell]bool{{module, action}: value}); err != nil {
		return fmt.Errorf("set override: %w", err)
	}
	log.Infow("permission override set", "usuario_id", userID, "modulo", module, "acao", action, "permitido", value)
	return nil
}

// SetOverridesForModule 同一模块的多条覆盖项在一个事务中写入并一次性可见；
// values 中未出现的动作保持原状
func (m *Manager) SetOverridesForModule(ctx context.Context, userID uint64, module model.Module, values map[model.Action]bool) error {
	actions := make([]model.Action, 0, len(values))
	for a := range values {
		actions = append(actions, a)
	}
	if err := validate(module, actions...); err != nil {
		return err
	}
	if _, err := m.users.GetUser(ctx, userID); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	cells := make(map[cell]bool, len(values))
	for a, v := range values {
		cells[cell{module, a}] = v
	}
	if err := m.store.Set(ctx, userID, cells); err != nil {
		return fmt.Errorf("set module overrides: %w", err)
	}
	log.Infow("permission module overrides set", "usuario_id", userID, "modulo", module, "values", values)
	return nil
}

// ResetOverride 删除覆盖项，恢复角色默认值；不存在时为空操作
func (m *Manager) ResetOverride(ctx context.Context, userID uint64, module model.Module, action model.Action) error {
	if err := validate(module, action); err != nil {
		return err
	}
	if _, err := m.users.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := m.store.Reset(ctx, userID, module, action); err != nil {
		return fmt.Errorf("reset override: %w", err)
	}
	log.Infow("permission override reset", "usuario_id", userID, "modulo", module, "acao", action)
	return nil
}

// ForgetUser 用户被删除后清理其覆盖项，不要求用户仍存在
func (m *Manager) ForgetUser(ctx context.Context, userID uint64) error {
	if err := m.store.Forget(ctx, userID); err != nil {
		return fmt.Errorf("forget user %d: %w", userID, err)
	}
	log.Infow("permission overrides removed", "usuario_id", userID)
	return nil
}

// Reload 丢弃用户的覆盖快照并从库中重新加载，返回重新计算后的矩阵。
// 覆盖表被其他实例或运维直接修改后调用
func (m *Manager) Reload(ctx context.Context, userID uint64) (Matrix, error) {
	u, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.store.Evict(userID)
	log.Infow("permission overrides reloaded", "usuario_id", userID)
	return m.resolver.AuthorizeAll(ctx, u.Principal())
}

// PermissionsOf 返回用户的有效权限矩阵
func (m *Manager) PermissionsOf(ctx context.Context, userID uint64) (Matrix, error) {
	u, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.resolver.AuthorizeAll(ctx, u.Principal())
}
