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
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID   uint64 = 1
	tecnicoID uint64 = 2
	usuarioID uint64 = 3
)

type fixture struct {
	perms    *repotest.Permissions
	users    *repotest.Users
	store    *Store
	resolver *Resolver
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		perms: repotest.NewPermissions(),
		users: repotest.NewUsers(
			model.User{ID: adminID, Nome: "Ana", Role: model.RoleAdmin},
			model.User{ID: tecnicoID, Nome: "Bruno", Role: model.RoleTecnico},
			model.User{ID: usuarioID, Nome: "Carla", Role: model.RoleUsuario},
		),
	}
	f.store = NewStore(f.perms)
	f.resolver = NewResolver(f.store, BuiltinDefaults(), nil)
	f.manager = NewManager(f.store, f.resolver, f.users)
	return f
}

func principal(id uint64, role model.Role) model.Principal {
	return model.Principal{UserID: id, Role: role}
}

func TestAuthorize_AdminBypass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := principal(adminID, model.RoleAdmin)

	// 显式 false 覆盖也不能挡住 admin
	for _, mod := range model.Modules {
		vals := map[model.Action]bool{}
		for _, a := range model.Actions {
			vals[a] = false
		}
		require.NoError(t, f.manager.SetOverridesForModule(ctx, adminID, mod, vals))
	}

	for _, mod := range model.Modules {
		for _, a := range model.Actions {
			assert.True(t, f.resolver.Authorize(ctx, admin, mod, a), "%s:%s", mod, a)
		}
	}

	m, err := f.resolver.AuthorizeAll(ctx, admin)
	require.NoError(t, err)
	for _, mod := range model.Modules {
		for _, a := range model.Actions {
			assert.True(t, m[mod][a])
		}
	}
}

func TestAuthorize_RoleDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tec := principal(tecnicoID, model.RoleTecnico)
	usr := principal(usuarioID, model.RoleUsuario)

	assert.True(t, f.resolver.Authorize(ctx, tec, model.ModuleTickets, model.ActionEdit))
	assert.False(t, f.resolver.Authorize(ctx, tec, model.ModuleTickets, model.ActionDelete))
	assert.True(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionView))
	assert.False(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))
	assert.False(t, f.resolver.Authorize(ctx, tec, model.ModuleAuditoria, model.ActionView))

	assert.True(t, f.resolver.Authorize(ctx, usr, model.ModuleTickets, model.ActionView))
	assert.False(t, f.resolver.Authorize(ctx, usr, model.ModuleTickets, model.ActionCreate))
	assert.False(t, f.resolver.Authorize(ctx, usr, model.ModuleAtivos, model.ActionView))

	assert.False(t, f.resolver.Authorize(ctx, principal(99, "visitante"), model.ModuleTickets, model.ActionView))
}

func TestAuthorize_OverridePrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tec := principal(tecnicoID, model.RoleTecnico)

	require.False(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))

	require.NoError(t, f.manager.SetOverride(ctx, tecnicoID, model.ModuleUsuarios, model.ActionDelete, true))
	assert.True(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))

	// 覆盖也可以收回默认权限
	require.NoError(t, f.manager.SetOverride(ctx, tecnicoID, model.ModuleTickets, model.ActionView, false))
	assert.False(t, f.resolver.Authorize(ctx, tec, model.ModuleTickets, model.ActionView))

	require.NoError(t, f.manager.ResetOverride(ctx, tecnicoID, model.ModuleUsuarios, model.ActionDelete))
	assert.False(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))
}

func TestAuthorize_UnknownModuleFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.resolver.Authorize(ctx, principal(adminID, model.RoleAdmin), "financeiro", model.ActionView))
	assert.False(t, f.resolver.Authorize(ctx, principal(tecnicoID, model.RoleTecnico), "financeiro", model.ActionView))
	assert.False(t, f.resolver.Authorize(ctx, principal(tecnicoID, model.RoleTecnico), model.ModuleTickets, "approve"))

	_, warned := f.resolver.warned.Load("module:financeiro")
	assert.True(t, warned)
}

func TestAuthorize_StoreErrorDenies(t *testing.T) {
	f := newFixture(t)
	f.perms.SetErr(errors.New("db down"))

	tec := principal(tecnicoID, model.RoleTecnico)
	assert.False(t, f.resolver.Authorize(context.Background(), tec, model.ModuleTickets, model.ActionView))
	_, err := f.resolver.AuthorizeAll(context.Background(), tec)
	assert.Error(t, err)

	// admin 不依赖存储
	assert.True(t, f.resolver.Authorize(context.Background(), principal(adminID, model.RoleAdmin), model.ModuleTickets, model.ActionView))
}

func TestManager_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.manager.SetOverride(ctx, 404, model.ModuleTickets, model.ActionView, true)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = f.manager.SetOverride(ctx, tecnicoID, "financeiro", model.ActionView, true)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	err = f.manager.SetOverride(ctx, tecnicoID, model.ModuleTickets, "approve", true)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	err = f.manager.SetOverridesForModule(ctx, tecnicoID, model.ModuleTickets, map[model.Action]bool{"approve": true})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	err = f.manager.ResetOverride(ctx, 404, model.ModuleTickets, model.ActionView)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.manager.PermissionsOf(ctx, 404)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestManager_SetOverrideIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetOverride(ctx, tecnicoID, model.ModuleUsuarios, model.ActionDelete, true))
	require.NoError(t, f.manager.SetOverride(ctx, tecnicoID, model.ModuleUsuarios, model.ActionDelete, true))

	rows, err := f.perms.ListByUser(ctx, tecnicoID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.True(t, rows[0].Permitido)
}

func TestManager_SetOverridesForModuleKeepsAbsentActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetOverride(ctx, tecnicoID, model.ModuleTickets, model.ActionDelete, true))
	require.NoError(t, f.manager.SetOverridesForModule(ctx, tecnicoID, model.ModuleTickets, map[model.Action]bool{
		model.ActionView: false,
		model.ActionEdit: false,
	}))

	m, err := f.manager.PermissionsOf(ctx, tecnicoID)
	require.NoError(t, err)
	assert.False(t, m[model.ModuleTickets][model.ActionView])
	assert.True(t, m[model.ModuleTickets][model.ActionCreate])
	assert.False(t, m[model.ModuleTickets][model.ActionEdit])
	assert.True(t, m[model.ModuleTickets][model.ActionDelete])
}

func TestManager_ForgetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tec := principal(tecnicoID, model.RoleTecnico)

	require.NoError(t, f.manager.SetOverride(ctx, tecnicoID, model.ModuleUsuarios, model.ActionDelete, true))
	require.True(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))

	f.users.Remove(tecnicoID)
	require.NoError(t, f.manager.ForgetUser(ctx, tecnicoID))

	rows, err := f.perms.ListByUser(ctx, tecnicoID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.False(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))
}

func TestAuthorizeAll_AtomicModuleUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tec := principal(tecnicoID, model.RoleTecnico)

	all := func(v bool) map[model.Action]bool {
		return map[model.Action]bool{
			model.ActionView: v, model.ActionCreate: v, model.ActionEdit: v, model.ActionDelete: v,
		}
	}
	require.NoError(t, f.manager.SetOverridesForModule(ctx, tecnicoID, model.ModuleTickets, all(false)))

	var stop atomic.Bool
	var torn atomic.Int64
	var wg sync.WaitGroup

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				m, err := f.resolver.AuthorizeAll(ctx, tec)
				if err != nil {
					continue
				}
				cell := m[model.ModuleTickets]
				first := cell[model.ActionView]
				for _, a := range model.Actions {
					if cell[a] != first {
						torn.Add(1)
					}
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		require.NoError(t, f.manager.SetOverridesForModule(ctx, tecnicoID, model.ModuleTickets, all(i%2 == 0)))
	}
	stop.Store(true)
	wg.Wait()

	assert.Zero(t, torn.Load())
}

func TestStore_ColdLoadCoalesced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.perms.Gate = make(chan struct{})
	f.perms.Entered = make(chan struct{}, 1)

	const callers = 32
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			_, err := f.store.Get(ctx, tecnicoID)
			assert.NoError(t, err)
		}()
	}
	started.Wait()
	<-f.perms.Entered
	// 让其余调用方都排到同一次加载之后
	time.Sleep(50 * time.Millisecond)
	close(f.perms.Gate)
	done.Wait()

	assert.Equal(t, 1, f.perms.LoadCount())

	_, err := f.store.Get(ctx, tecnicoID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.perms.LoadCount())
}

func TestStore_LoadSurvivesFirstCallerCancel(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.perms.Upsert(context.Background(), model.PermissionOverride{
		UsuarioID: tecnicoID, Modulo: model.ModuleUsuarios, Acao: model.ActionDelete, Permitido: true,
	}))
	f.perms.Gate = make(chan struct{})
	f.perms.Entered = make(chan struct{}, 1)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := f.store.Get(first, tecnicoID)
		firstDone <- err
	}()
	<-f.perms.Entered

	tec := principal(tecnicoID, model.RoleTecnico)
	allowed := make(chan bool, 1)
	go func() {
		allowed <- f.resolver.Authorize(context.Background(), tec, model.ModuleUsuarios, model.ActionDelete)
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(10 * time.Millisecond)
	close(f.perms.Gate)

	assert.NoError(t, <-firstDone)
	assert.True(t, <-allowed)
}

func TestManager_ReloadPicksUpExternalChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tec := principal(tecnicoID, model.RoleTecnico)

	require.False(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))

	// 覆盖表被进程外修改，快照仍是旧值
	require.NoError(t, f.perms.Upsert(ctx, model.PermissionOverride{
		UsuarioID: tecnicoID, Modulo: model.ModuleUsuarios, Acao: model.ActionDelete, Permitido: true,
	}))
	assert.False(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))

	m, err := f.manager.Reload(ctx, tecnicoID)
	require.NoError(t, err)
	assert.True(t, m[model.ModuleUsuarios][model.ActionDelete])
	assert.True(t, f.resolver.Authorize(ctx, tec, model.ModuleUsuarios, model.ActionDelete))

	_, err = f.manager.Reload(ctx, 404)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDefaults_Overlay(t *testing.T) {
	d, err := NewDefaults(DefaultsConfig{
		"usuario": {"ativos": {"view"}},
		"tecnico": {"tickets": {"view", "create", "edit", "delete"}, "licencas": {}},
	})
	require.NoError(t, err)

	assert.True(t, d.Allowed(model.RoleUsuario, model.ModuleAtivos, model.ActionView))
	assert.True(t, d.Allowed(model.RoleUsuario, model.ModuleTickets, model.ActionView))
	assert.True(t, d.Allowed(model.RoleTecnico, model.ModuleTickets, model.ActionDelete))
	assert.False(t, d.Allowed(model.RoleTecnico, model.ModuleLicencas, model.ActionView))

	_, err = NewDefaults(DefaultsConfig{"gerente": {"tickets": {"view"}}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = NewDefaults(DefaultsConfig{"tecnico": {"financeiro": {"view"}}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = NewDefaults(DefaultsConfig{"tecnico": {"tickets": {"approve"}}})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
