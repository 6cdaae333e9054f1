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
	"strings"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/service/access"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	"github.com/go-arcade/helpdesk/pkg/http/middleware"
	"github.com/gofiber/fiber/v2"
)

/**
 * @file: router_event.go
 * @description: 业务页面在操作成功之后上报事件，写审计并按规则通知
 */

type eventReq struct {
	Acao       string        `json:"acao"`
	Modulo     string        `json:"modulo"`
	RegistroID *int64        `json:"registro_id"`
	Detalhes   audit.Payload `json:"detalhes"`
	AssigneeID *uint64       `json:"assignee_id"`
	SetorID    *uint64       `json:"setor_id"`
	Recipients []uint64      `json:"recipients"`
	Tipo       string        `json:"tipo"`
	Titulo     string        `json:"titulo"`
	Mensagem   string        `json:"mensagem"`
	Link       *string       `json:"link"`
}

func (rt *Router) eventRouter(r fiber.Router) {
	r.Post("/events", rt.recordEvent)
}

// actionFor 事件动词对应的权限动作；其余动词都视为修改
func actionFor(acao string) model.Action {
	switch acao {
	case "criou":
		return model.ActionCreate
	case "excluiu":
		return model.ActionDelete
	default:
		return model.ActionEdit
	}
}

// customized 请求自带接收人或文案，绕过规则表
func (req *eventReq) customized() bool {
	return len(req.Recipients) > 0 || req.Titulo != "" || req.Mensagem != "" || req.Link != nil
}

// validLink 只接受站内相对路径
func validLink(link string) bool {
	return strings.HasPrefix(link, "/") && !strings.HasPrefix(link, "//") && !strings.ContainsAny(link, "\\\r\n")
}

func (rt *Router) recordEvent(c *fiber.Ctx) error {
	var req eventReq
	if err := c.BodyParser(&req); err != nil {
		return invalid("malformed event body")
	}
	module, ok := model.ParseModule(req.Modulo)
	if !ok {
		return invalid("unknown module %q", req.Modulo)
	}
	if req.Acao == "" {
		return invalid("acao is required")
	}

	// 先鉴权再写审计：上报者必须能对该模块执行对应的动作
	p := principalOf(c)
	if err := rt.Facade.Require(c.UserContext(), p, module, actionFor(req.Acao)); err != nil {
		return err
	}
	if req.customized() {
		if err := rt.Facade.Require(c.UserContext(), p, model.ModuleUsuarios, model.ActionEdit); err != nil {
			return err
		}
	}
	if req.Link != nil && !validLink(*req.Link) {
		return invalid("link must be a site-relative path")
	}

	actor := p.UserID
	ip := middleware.RealIP(c)
	e := access.Event{
		UsuarioID:  &actor,
		Acao:       req.Acao,
		Modulo:     string(module),
		RegistroID: req.RegistroID,
		Detalhes:   req.Detalhes,
		IPAddress:  &ip,
		AssigneeID: req.AssigneeID,
		SetorID:    req.SetorID,
		Recipients: req.Recipients,
		Titulo:     req.Titulo,
		Mensagem:   req.Mensagem,
		Link:       req.Link,
	}
	if req.Tipo != "" {
		e.Tipo = model.NormalizeNotificationType(req.Tipo)
	}
	rt.Facade.RecordAndNotify(c.UserContext(), e)
	return c.SendStatus(fiber.StatusAccepted)
}
