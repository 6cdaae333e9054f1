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
	"sync"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
)

// Resolver 计算 (用户, 模块, 动作) 的有效权限
type Resolver struct {
	store    *Store
	defaults *Defaults
	metrics  *metrics.AccessMetrics
	warned   sync.Map // 已告警的未知模块/动作
}

func NewResolver(store *Store, defaults *Defaults, m *metrics.AccessMetrics) *Resolver {
	if defaults == nil {
		defaults = BuiltinDefaults()
	}
	return &Resolver{store: store, defaults: defaults, metrics: m}
}

func (r *Resolver) warnOnce(kind, name string, p model.Principal) {
	if _, loaded := r.warned.LoadOrStore(kind+":"+name, struct{}{}); loaded {
		return
	}
	log.Warnw("unknown "+kind+" in authorization request, denying", kind, name, "usuario_id", p.UserID)
}

// Authorize 永不返回错误：未知模块/动作、仓储故障均视为拒绝。
// admin 对所有已知模块无条件放行，不看覆盖项
func (r *Resolver) Authorize(ctx context.Context, p model.Principal, module model.Module, action model.Action) bool {
	allowed := r.authorize(ctx, p, module, action)
	r.metrics.Authorize(string(module), string(action), allowed)
	return allowed
}

func (r *Resolver) authorize(ctx context.Context, p model.Principal, module model.Module, action model.Action) bool {
	if !module.Valid() {
		r.warnOnce("module", string(module), p)
		return false
	}
	if !action.Valid() {
		r.warnOnce("action", string(action), p)
		return false
	}
	if p.IsAdmin() {
		return true
	}

	o, err := r.store.Get(ctx, p.UserID)
	if err != nil {
		log.Errorw("failed to load permission overrides, denying", "usuario_id", p.UserID, "modulo", module, "acao", action, "error", err)
		return false
	}
	return r.decide(o, p.Role, module, action)
}

func (r *Resolver) decide(o *Overrides, role model.Role, module model.Module, action model.Action) bool {
	if v, ok := o.Lookup(module, action); ok {
		return v
	}
	return r.defaults.Allowed(role, module, action)
}

// AuthorizeAll 基于同一份快照计算完整矩阵
func (r *Resolver) AuthorizeAll(ctx context.Context, p model.Principal) (Matrix, error) {
	m := newMatrix()
	if p.IsAdmin() {
		for _, mod := range model.Modules {
			for _, a := range model.Actions {
				m[mod][a] = true
			}
		}
		return m, nil
	}

	o, err := r.store.Get(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("authorize all for user %d: %w", p.UserID, err)
	}
	for _, mod := range model.Modules {
		for _, a := range model.Actions {
			m[mod][a] = r.decide(o, p.Role, mod, a)
		}
	}
	return m, nil
}
