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
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/service/access"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/http/middleware"
	"github.com/gofiber/fiber/v2"
)

/**
 * @file: router_permission.go
 * @description: 权限管理页面使用的接口
 */

const acaoAlterouPermissao = "alterou_permissao"

func (rt *Router) permissionRouter(r fiber.Router) {
	perm := r.Group("/permissions")
	{
		perm.Get("/:userId", rt.require(model.ModuleUsuarios, model.ActionView), rt.getPermissions)
		// 覆盖表被进程外修改后重新加载
		perm.Post("/:userId/reload", rt.require(model.ModuleUsuarios, model.ActionEdit), rt.reloadPermissions)
		perm.Put("/:userId/:module/:action", rt.require(model.ModuleUsuarios, model.ActionEdit), rt.setOverride)
		perm.Put("/:userId/:module", rt.require(model.ModuleUsuarios, model.ActionEdit), rt.setModuleOverrides)
		perm.Delete("/:userId/:module/:action", rt.require(model.ModuleUsuarios, model.ActionEdit), rt.resetOverride)
		// 用户被删除时由用户管理调用，清理全部覆盖
		perm.Delete("/:userId", rt.require(model.ModuleUsuarios, model.ActionDelete), rt.forgetUser)
	}
}

func (rt *Router) getPermissions(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	matrix, err := rt.Manager.PermissionsOf(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return httpx.WithRepJSON(c, matrix)
}

func (rt *Router) reloadPermissions(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	matrix, err := rt.Manager.Reload(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return httpx.WithRepJSON(c, matrix)
}

type overrideReq struct {
	Value *bool `json:"value"`
}

func (rt *Router) setOverride(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	module, action, err := moduleAction(c)
	if err != nil {
		return err
	}
	var req overrideReq
	if err := c.BodyParser(&req); err != nil || req.Value == nil {
		return invalid("body must be {\"value\": bool}")
	}

	if err := rt.Manager.SetOverride(c.UserContext(), userID, module, action, *req.Value); err != nil {
		return err
	}
	rt.recordPermissionChange(c, userID, audit.Payload{
		"modulo":    module,
		"acao":      action,
		"permitido": *req.Value,
	})
	return httpx.WithRepNotDetail(c)
}

func (rt *Router) setModuleOverrides(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	module, ok := model.ParseModule(c.Params("module"))
	if !ok {
		return invalid("unknown module %q", c.Params("module"))
	}
	var req map[string]bool
	if err := c.BodyParser(&req); err != nil || len(req) == 0 {
		return invalid("body must be an object of action -> bool")
	}
	values := make(map[model.Action]bool, len(req))
	for name, v := range req {
		action, ok := model.ParseAction(name)
		if !ok {
			return invalid("unknown action %q", name)
		}
		values[action] = v
	}

	if err := rt.Manager.SetOverridesForModule(c.UserContext(), userID, module, values); err != nil {
		return err
	}
	rt.recordPermissionChange(c, userID, audit.Payload{
		"modulo":  module,
		"valores": values,
	})
	return httpx.WithRepNotDetail(c)
}

func (rt *Router) resetOverride(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	module, action, err := moduleAction(c)
	if err != nil {
		return err
	}
	if err := rt.Manager.ResetOverride(c.UserContext(), userID, module, action); err != nil {
		return err
	}
	rt.recordPermissionChange(c, userID, audit.Payload{
		"modulo":    module,
		"acao":      action,
		"restaurou": true,
	})
	return httpx.WithRepNotDetail(c)
}

func (rt *Router) forgetUser(c *fiber.Ctx) error {
	userID, err := paramUint(c, "userId")
	if err != nil {
		return err
	}
	if err := rt.Manager.ForgetUser(c.UserContext(), userID); err != nil {
		return err
	}
	rt.recordPermissionChange(c, userID, audit.Payload{"removeu_todas": true})
	return httpx.WithRepNotDetail(c)
}

func moduleAction(c *fiber.Ctx) (model.Module, model.Action, error) {
	module, ok := model.ParseModule(c.Params("module"))
	if !ok {
		return "", "", invalid("unknown module %q", c.Params("module"))
	}
	action, ok := model.ParseAction(c.Params("action"))
	if !ok {
		return "", "", invalid("unknown action %q", c.Params("action"))
	}
	return module, action, nil
}

func (rt *Router) recordPermissionChange(c *fiber.Ctx, target uint64, detalhes audit.Payload) {
	actor := principalOf(c).UserID
	registro := int64(target)
	ip := middleware.RealIP(c)
	rt.Facade.RecordAndNotify(c.UserContext(), access.Event{
		UsuarioID:  &actor,
		Acao:       acaoAlterouPermissao,
		Modulo:     string(model.ModuleUsuarios),
		RegistroID: &registro,
		Detalhes:   detalhes,
		IPAddress:  &ip,
	})
}
