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

// Package repotest provides in-memory repositories for service tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
)

var (
	_ repo.IUserRepository         = (*Users)(nil)
	_ repo.IPermissionRepository   = (*Permissions)(nil)
	_ repo.IAuditRepository        = (*Audit)(nil)
	_ repo.INotificationRepository = (*Notifications)(nil)
	_ repo.ISectorRepository       = (*Sectors)(nil)
)

// Users 内存用户表
type Users struct {
	mu    sync.RWMutex
	users map[uint64]model.User
}

func NewUsers(users ...model.User) *Users {
	u := &Users{users: make(map[uint64]model.User)}
	for _, x := range users {
		u.Put(x)
	}
	return u
}

func (u *Users) Put(user model.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.ID] = user
}

func (u *Users) Remove(id uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.users, id)
}

func (u *Users) GetUser(_ context.Context, id uint64) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return &user, nil
}

func (u *Users) UserIDsByRole(_ context.Context, role model.Role) ([]uint64, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	ids := make([]uint64, 0)
	for id, user := range u.users {
		if user.Role == role {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type overrideKey struct {
	user   uint64
	module model.Module
	action model.Action
}

// Permissions 内存覆盖表；Err 非空时所有操作返回该错误
type Permissions struct {
	mu    sync.Mutex
	rows  map[overrideKey]model.PermissionOverride
	Err   error
	Loads int // ListByUser 调用次数
	// Gate 非 nil 时 ListByUser 等待其关闭或 ctx 结束；进入等待前向 Entered 发信号
	Gate    chan struct{}
	Entered chan struct{}
}

func NewPermissions() *Permissions {
	return &Permissions{rows: make(map[overrideKey]model.PermissionOverride)}
}

func (p *Permissions) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Err = err
}

func (p *Permissions) LoadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Loads
}

func (p *Permissions) ListByUser(ctx context.Context, userID uint64) ([]model.PermissionOverride, error) {
	p.mu.Lock()
	p.Loads++
	gate, entered := p.Gate, p.Entered
	p.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	list := make([]model.PermissionOverride, 0)
	for k, v := range p.rows {
		if k.user == userID {
			list = append(list, v)
		}
	}
	return list, nil
}

func (p *Permissions) Upsert(_ context.Context, overrides ...model.PermissionOverride) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	for _, o := range overrides {
		o.UpdatedAt = time.Now()
		p.rows[overrideKey{o.UsuarioID, o.Modulo, o.Acao}] = o
	}
	return nil
}

func (p *Permissions) Delete(_ context.Context, userID uint64, module model.Module, action model.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	delete(p.rows, overrideKey{userID, module, action})
	return nil
}

func (p *Permissions) DeleteByUser(_ context.Context, userID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	for k := range p.rows {
		if k.user == userID {
			delete(p.rows, k)
		}
	}
	return nil
}

// Audit 内存审计表
type Audit struct {
	mu      sync.Mutex
	records []model.AuditRecord
	nextID  uint64
	Err     error
	Block   chan struct{} // 非 nil 时 Insert 等待其关闭
	// FailNext 之后的 N 次 Insert 返回错误
	FailNext int
}

func NewAudit() *Audit {
	return &Audit{}
}

func (a *Audit) SetErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Err = err
}

func (a *Audit) Insert(_ context.Context, record *model.AuditRecord) error {
	if a.Block != nil {
		<-a.Block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	if a.FailNext > 0 {
		a.FailNext--
		return fmt.Errorf("transient insert failure")
	}
	a.nextID++
	record.ID = a.nextID
	a.records = append(a.records, *record)
	return nil
}

func (a *Audit) Find(_ context.Context, f model.AuditFilter) ([]model.AuditRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.AuditRecord, 0)
	for _, r := range a.records {
		if f.UsuarioID != nil && (r.UsuarioID == nil || *r.UsuarioID != *f.UsuarioID) {
			continue
		}
		if f.Modulo != "" && r.Modulo != f.Modulo {
			continue
		}
		if f.Acao != "" && r.Acao != f.Acao {
			continue
		}
		if f.DataInicio != nil && r.CriadoEm.Before(*f.DataInicio) {
			continue
		}
		if f.DataFim != nil && r.CriadoEm.After(*f.DataFim) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Records 返回已写入记录的副本
func (a *Audit) Records() []model.AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AuditRecord(nil), a.records...)
}

// Notifications 内存通知表
type Notifications struct {
	mu     sync.Mutex
	rows   []*model.Notification
	nextID uint64
	// FailFor 对这些用户的 Create 返回错误
	FailFor map[uint64]error
}

func NewNotifications() *Notifications {
	return &Notifications{FailFor: make(map[uint64]error)}
}

func (n *Notifications) Fail(userID uint64, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.FailFor[userID] = err
}

func (n *Notifications) Create(_ context.Context, x *model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.FailFor[x.UsuarioID]; err != nil {
		return err
	}
	n.nextID++
	x.ID = n.nextID
	if x.CriadoEm.IsZero() {
		x.CriadoEm = time.Now()
	}
	cp := *x
	n.rows = append(n.rows, &cp)
	return nil
}

func (n *Notifications) Get(_ context.Context, id uint64) (*model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.rows {
		if x.ID == id {
			cp := *x
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("notification %d: %w", id, core.ErrNotFound)
}

func (n *Notifications) MarkRead(_ context.Context, id uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.rows {
		if x.ID == id {
			x.Lida = true
			return nil
		}
	}
	return fmt.Errorf("notification %d: %w", id, core.ErrNotFound)
}

func (n *Notifications) MarkAllRead(_ context.Context, userID uint64) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var count int64
	for _, x := range n.rows {
		if x.UsuarioID == userID && !x.Lida {
			x.Lida = true
			count++
		}
	}
	return count, nil
}

func (n *Notifications) CountUnread(_ context.Context, userID uint64) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var count int64
	for _, x := range n.rows {
		if x.UsuarioID == userID && !x.Lida {
			count++
		}
	}
	return count, nil
}

func (n *Notifications) ListByUser(_ context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.Notification, 0)
	for i := len(n.rows) - 1; i >= 0; i-- {
		x := n.rows[i]
		if x.UsuarioID != userID || (unreadOnly && x.Lida) {
			continue
		}
		out = append(out, *x)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All 返回全部通知，按创建顺序
func (n *Notifications) All() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.Notification, 0, len(n.rows))
	for _, x := range n.rows {
		out = append(out, *x)
	}
	return out
}

// Sectors 内存 setor 绑定
type Sectors struct {
	mu            sync.RWMutex
	bindings      map[uint64][]uint64
	Err           error
	invalidations map[uint64]int
}

func NewSectors() *Sectors {
	return &Sectors{bindings: make(map[uint64][]uint64)}
}

func (s *Sectors) Bind(setorID uint64, users ...uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[setorID] = append(s.bindings[setorID], users...)
}

func (s *Sectors) TechniciansOf(_ context.Context, setorID uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]uint64{}, s.bindings[setorID]...), nil
}

func (s *Sectors) Invalidate(_ context.Context, setorID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidations == nil {
		s.invalidations = make(map[uint64]int)
	}
	s.invalidations[setorID]++
}

// Invalidations 返回 setor 被 Invalidate 的次数
func (s *Sectors) Invalidations(setorID uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invalidations[setorID]
}
