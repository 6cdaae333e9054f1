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

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo/repotest"
	"github.com/go-arcade/helpdesk/internal/engine/service/access"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	"github.com/go-arcade/helpdesk/internal/engine/service/notification"
	"github.com/go-arcade/helpdesk/internal/engine/service/permission"
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/http/jwt"
	"github.com/go-arcade/helpdesk/pkg/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret   = "router-test-secret"
	admin    = uint64(1)
	tecnico  = uint64(2)
	usuario  = uint64(3)
	inactive = uint64(4)
)

type env struct {
	app        *fiber.App
	auditDB    *repotest.Audit
	notifDB    *repotest.Notifications
	sectors    *repotest.Sectors
	dispatcher *notification.Dispatcher
	facade     *access.Facade
	audit      *audit.Log
}

func newEnv(t *testing.T) *env {
	t.Helper()
	users := repotest.NewUsers(
		model.User{ID: admin, Role: model.RoleAdmin, Ativo: true},
		model.User{ID: tecnico, Role: model.RoleTecnico, Ativo: true},
		model.User{ID: usuario, Role: model.RoleUsuario, Ativo: true},
		model.User{ID: inactive, Role: model.RoleAdmin, Ativo: false},
	)
	e := &env{
		auditDB: repotest.NewAudit(),
		notifDB: repotest.NewNotifications(),
		sectors: repotest.NewSectors(),
	}
	hub := ws.NewHub(nil)
	store := permission.NewStore(repotest.NewPermissions())
	resolver := permission.NewResolver(store, permission.BuiltinDefaults(), nil)
	manager := permission.NewManager(store, resolver, users)
	e.audit = audit.NewLog(e.auditDB, audit.Options{}, nil)
	e.dispatcher = notification.NewDispatcher(e.notifDB, e.sectors, hub, nil)
	table, err := access.NewRuleTable(access.DefaultRules()...)
	require.NoError(t, err)
	e.facade = access.NewFacade(resolver, e.audit, e.dispatcher, users, table, access.Options{})

	conf := &httpx.Http{Auth: httpx.Auth{SecretKey: secret}}
	conf.SetDefaults()
	rt := NewRouter(conf, e.facade, manager, e.dispatcher, e.audit, users, hub,
		notification.NewSessionHandler(e.dispatcher), ws.Options{Buffer: 8})
	e.app = rt.Router()
	return e
}

// drain 等待异步的审计和通知处理完
func (e *env) drain() {
	e.facade.Close()
	e.audit.Close()
}

type result struct {
	Status int
	Body   map[string]any
}

func (e *env) do(t *testing.T, method, path string, as uint64, body any) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != 0 {
		token, err := jwt.GenToken(strconv.FormatUint(as, 10), []byte(secret), time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	out := result{Status: resp.StatusCode}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	defer e.drain()
	assert.Equal(t, fiber.StatusOK, e.do(t, http.MethodGet, "/health", 0, nil).Status)
}

func TestAuthentication(t *testing.T) {
	e := newEnv(t)
	defer e.drain()

	assert.Equal(t, fiber.StatusUnauthorized, e.do(t, http.MethodGet, "/api/v1/notifications", 0, nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, e.do(t, http.MethodGet, "/api/v1/notifications", inactive, nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, e.do(t, http.MethodGet, "/api/v1/notifications", 99, nil).Status)
	assert.Equal(t, fiber.StatusOK, e.do(t, http.MethodGet, "/api/v1/notifications", usuario, nil).Status)
}

func TestPermissions_DeniedIsOpaque(t *testing.T) {
	e := newEnv(t)
	defer e.drain()

	res := e.do(t, http.MethodPut, "/api/v1/permissions/3/tickets/view", tecnico, map[string]any{"value": false})
	assert.Equal(t, fiber.StatusForbidden, res.Status)
	assert.Equal(t, "access denied", res.Body["errMsg"])

	res = e.do(t, http.MethodGet, "/api/v1/permissions/2", usuario, nil)
	assert.Equal(t, fiber.StatusForbidden, res.Status)
}

func TestPermissions_OverrideLifecycle(t *testing.T) {
	e := newEnv(t)

	cell := func() any {
		res := e.do(t, http.MethodGet, "/api/v1/permissions/2", tecnico, nil)
		require.Equal(t, fiber.StatusOK, res.Status)
		detail := res.Body["detail"].(map[string]any)
		return detail["usuarios"].(map[string]any)["delete"]
	}
	assert.Equal(t, false, cell())

	res := e.do(t, http.MethodPut, "/api/v1/permissions/2/usuarios/delete", admin, map[string]any{"value": true})
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, true, cell())

	res = e.do(t, http.MethodDelete, "/api/v1/permissions/2/usuarios/delete", admin, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Equal(t, false, cell())

	e.drain()
	var changes int
	for _, r := range e.auditDB.Records() {
		if r.Acao == acaoAlterouPermissao {
			changes++
			require.NotNil(t, r.RegistroID)
			assert.Equal(t, int64(tecnico), *r.RegistroID)
			assert.Equal(t, admin, *r.UsuarioID)
		}
	}
	assert.Equal(t, 2, changes)
}

func TestPermissions_ModuleBulk(t *testing.T) {
	e := newEnv(t)
	defer e.drain()

	res := e.do(t, http.MethodPut, "/api/v1/permissions/3/tickets", admin, map[string]bool{
		"view": true, "create": true, "edit": true, "delete": false,
	})
	require.Equal(t, fiber.StatusOK, res.Status)

	res = e.do(t, http.MethodGet, "/api/v1/permissions/3", admin, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	tickets := res.Body["detail"].(map[string]any)["tickets"].(map[string]any)
	assert.Equal(t, map[string]any{"view": true, "create": true, "edit": true, "delete": false}, tickets)
}

func TestPermissions_Errors(t *testing.T) {
	e := newEnv(t)
	defer e.drain()

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown module", http.MethodPut, "/api/v1/permissions/2/financeiro/view", map[string]any{"value": true}, fiber.StatusBadRequest},
		{"unknown action", http.MethodPut, "/api/v1/permissions/2/tickets/approve", map[string]any{"value": true}, fiber.StatusBadRequest},
		{"missing value", http.MethodPut, "/api/v1/permissions/2/tickets/view", map[string]any{}, fiber.StatusBadRequest},
		{"bad user id", http.MethodGet, "/api/v1/permissions/abc", nil, fiber.StatusBadRequest},
		{"unknown user", http.MethodPut, "/api/v1/permissions/99/tickets/view", map[string]any{"value": true}, fiber.StatusNotFound},
		{"unknown bulk action", http.MethodPut, "/api/v1/permissions/2/tickets", map[string]bool{"approve": true}, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, e.do(t, tc.method, tc.path, admin, tc.body).Status)
		})
	}
}

func TestNotifications(t *testing.T) {
	e := newEnv(t)
	defer e.drain()
	ctx := context.Background()

	own, err := e.dispatcher.NotifyUser(ctx, usuario, model.NotificationInfo, "a", "a", nil)
	require.NoError(t, err)
	_, err = e.dispatcher.NotifyUser(ctx, usuario, model.NotificationAviso, "b", "b", nil)
	require.NoError(t, err)
	foreign, err := e.dispatcher.NotifyUser(ctx, tecnico, model.NotificationInfo, "c", "c", nil)
	require.NoError(t, err)

	res := e.do(t, http.MethodGet, "/api/v1/notifications?unread=true", usuario, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Len(t, res.Body["detail"], 2)

	res = e.do(t, http.MethodGet, "/api/v1/notifications/unread-count", usuario, nil)
	assert.Equal(t, float64(2), res.Body["detail"].(map[string]any)["unread"])

	path := "/api/v1/notifications/" + strconv.FormatUint(foreign.ID, 10) + "/read"
	assert.Equal(t, fiber.StatusNotFound, e.do(t, http.MethodPut, path, usuario, nil).Status)

	path = "/api/v1/notifications/" + strconv.FormatUint(own.ID, 10) + "/read"
	assert.Equal(t, fiber.StatusOK, e.do(t, http.MethodPut, path, usuario, nil).Status)
	assert.Equal(t, fiber.StatusOK, e.do(t, http.MethodPut, path, usuario, nil).Status, "marking twice is not an error")

	res = e.do(t, http.MethodPut, "/api/v1/notifications/read-all", usuario, nil)
	assert.Equal(t, float64(1), res.Body["detail"].(map[string]any)["updated"])

	res = e.do(t, http.MethodGet, "/api/v1/notifications/unread-count", usuario, nil)
	assert.Equal(t, float64(0), res.Body["detail"].(map[string]any)["unread"])

	assert.Equal(t, fiber.StatusBadRequest, e.do(t, http.MethodGet, "/api/v1/notifications?limit=0", usuario, nil).Status)
}

func TestAudit(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, fiber.StatusForbidden, e.do(t, http.MethodGet, "/api/v1/audit", tecnico, nil).Status)

	res := e.do(t, http.MethodPost, "/api/v1/events", tecnico, map[string]any{
		"acao": "criou", "modulo": "ativos", "registro_id": 7,
		"detalhes": map[string]any{"nome": "notebook"},
	})
	require.Equal(t, fiber.StatusAccepted, res.Status)
	e.drain()

	today := time.Now().Format(dateLayout)
	res = e.do(t, http.MethodGet, "/api/v1/audit?modulo=ativos&usuario_id=2&data_inicio="+today+"&data_fim="+today, admin, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	records := res.Body["detail"].([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Equal(t, "criou", rec["acao"])
	assert.Equal(t, map[string]any{"nome": "notebook"}, rec["detalhes"])

	res = e.do(t, http.MethodGet, "/api/v1/audit?acao=excluiu", admin, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	assert.Empty(t, res.Body["detail"])

	assert.Equal(t, fiber.StatusBadRequest, e.do(t, http.MethodGet, "/api/v1/audit?data_inicio=yesterday", admin, nil).Status)
	assert.Equal(t, fiber.StatusBadRequest, e.do(t, http.MethodGet, "/api/v1/audit?data_inicio=2025-02-01&data_fim=2025-01-01", admin, nil).Status)
}

func TestEvents_NotifyAssignee(t *testing.T) {
	e := newEnv(t)

	res := e.do(t, http.MethodPost, "/api/v1/events", admin, map[string]any{
		"acao": "atribuiu", "modulo": "tickets", "registro_id": 42, "assignee_id": usuario,
	})
	require.Equal(t, fiber.StatusAccepted, res.Status)
	assert.Equal(t, fiber.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/events", admin, map[string]any{
		"acao": "criou", "modulo": "financeiro",
	}).Status)
	e.drain()

	var got []model.Notification
	for _, n := range e.notifDB.All() {
		if n.UsuarioID == usuario {
			got = append(got, n)
		}
	}
	require.Len(t, got, 1)
	assert.False(t, got[0].Lida)
	require.NotNil(t, got[0].Link)
	assert.Equal(t, "/tickets/42", *got[0].Link)
}

func TestEvents_ReporterMustHoldModulePermission(t *testing.T) {
	e := newEnv(t)

	res := e.do(t, http.MethodPost, "/api/v1/events", usuario, map[string]any{
		"acao": "excluiu", "modulo": "usuarios", "recipients": []uint64{admin},
		"titulo": "Reset your password", "link": "https://evil.example/login",
	})
	assert.Equal(t, fiber.StatusForbidden, res.Status)
	assert.Equal(t, "access denied", res.Body["errMsg"])

	// usuario 对 tickets 只有 view
	assert.Equal(t, fiber.StatusForbidden, e.do(t, http.MethodPost, "/api/v1/events", usuario, map[string]any{
		"acao": "criou", "modulo": "tickets", "setor_id": 1,
	}).Status)

	// 自定义接收人和文案需要 usuarios:edit
	assert.Equal(t, fiber.StatusForbidden, e.do(t, http.MethodPost, "/api/v1/events", tecnico, map[string]any{
		"acao": "alterou", "modulo": "tickets", "recipients": []uint64{admin}, "titulo": "oi",
	}).Status)

	e.drain()
	assert.Empty(t, e.auditDB.Records())
	assert.Empty(t, e.notifDB.All())
}

func TestEvents_AllowedReporters(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, fiber.StatusAccepted, e.do(t, http.MethodPost, "/api/v1/events", tecnico, map[string]any{
		"acao": "atribuiu", "modulo": "tickets", "registro_id": 7, "assignee_id": usuario,
	}).Status)
	assert.Equal(t, fiber.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/events", admin, map[string]any{
		"acao": "alterou", "modulo": "tickets", "recipients": []uint64{usuario}, "link": "https://evil.example",
	}).Status)
	assert.Equal(t, fiber.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/events", admin, map[string]any{
		"acao": "alterou", "modulo": "tickets", "recipients": []uint64{usuario}, "link": "//evil.example",
	}).Status)
	assert.Equal(t, fiber.StatusAccepted, e.do(t, http.MethodPost, "/api/v1/events", admin, map[string]any{
		"acao": "alterou", "modulo": "tickets", "recipients": []uint64{usuario}, "titulo": "Prazo", "link": "/tickets/7",
	}).Status)
	e.drain()

	var actors []uint64
	for _, r := range e.auditDB.Records() {
		actors = append(actors, *r.UsuarioID)
	}
	assert.ElementsMatch(t, []uint64{tecnico, admin}, actors)
	assert.Len(t, e.notifDB.All(), 2)
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, model.ActionCreate, actionFor("criou"))
	assert.Equal(t, model.ActionDelete, actionFor("excluiu"))
	assert.Equal(t, model.ActionEdit, actionFor("atribuiu"))
	assert.Equal(t, model.ActionEdit, actionFor("qualquer"))
}

func TestValidLink(t *testing.T) {
	for _, link := range []string{"/tickets/7", "/", "/relatorios?mes=3"} {
		assert.True(t, validLink(link), link)
	}
	for _, link := range []string{"", "tickets/7", "https://evil.example/login", "//evil.example", "/\\evil.example", "/a\r\nSet-Cookie: x"} {
		assert.False(t, validLink(link), link)
	}
}

func TestPermissions_Reload(t *testing.T) {
	e := newEnv(t)
	defer e.drain()

	res := e.do(t, http.MethodPost, "/api/v1/permissions/2/reload", admin, nil)
	require.Equal(t, fiber.StatusOK, res.Status)
	detail := res.Body["detail"].(map[string]any)
	assert.Equal(t, true, detail["tickets"].(map[string]any)["edit"])

	assert.Equal(t, fiber.StatusForbidden, e.do(t, http.MethodPost, "/api/v1/permissions/2/reload", tecnico, nil).Status)
	assert.Equal(t, fiber.StatusNotFound, e.do(t, http.MethodPost, "/api/v1/permissions/99/reload", admin, nil).Status)
}

func TestSectors_Invalidate(t *testing.T) {
	e := newEnv(t)
	defer e.drain()

	assert.Equal(t, fiber.StatusForbidden, e.do(t, http.MethodPost, "/api/v1/sectors/9/invalidate", tecnico, nil).Status)
	assert.Zero(t, e.sectors.Invalidations(9))

	assert.Equal(t, fiber.StatusOK, e.do(t, http.MethodPost, "/api/v1/sectors/9/invalidate", admin, nil).Status)
	assert.Equal(t, 1, e.sectors.Invalidations(9))
	assert.Equal(t, fiber.StatusBadRequest, e.do(t, http.MethodPost, "/api/v1/sectors/abc/invalidate", admin, nil).Status)
}

func TestParseDate(t *testing.T) {
	d, dateOnly, err := parseDate("2025-03-01")
	require.NoError(t, err)
	assert.True(t, dateOnly)
	assert.Equal(t, 1, d.Day())

	d, dateOnly, err = parseDate("2025-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.False(t, dateOnly)
	assert.Equal(t, 10, d.Hour())

	d, _, err = parseDate("")
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	e := newEnv(t)
	defer e.drain()

	assert.Equal(t, fiber.StatusUpgradeRequired, e.do(t, http.MethodGet, "/ws/notifications", usuario, nil).Status)
	assert.Equal(t, fiber.StatusUnauthorized, e.do(t, http.MethodGet, "/ws/notifications", 0, nil).Status)
}

func TestNotFoundRoute(t *testing.T) {
	e := newEnv(t)
	defer e.drain()
	assert.Equal(t, fiber.StatusNotFound, e.do(t, http.MethodGet, "/nope", 0, nil).Status)
}
