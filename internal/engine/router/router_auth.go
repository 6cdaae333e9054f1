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
	"strconv"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/http/middleware"
	"github.com/go-arcade/helpdesk/pkg/ws"
	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// principal 在 token 校验之后执行；每次请求重新读取角色，角色变更下一次请求即生效
func (rt *Router) principal(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return httpx.WithRepErr(c, fiber.StatusUnauthorized, httpx.Unauthorized)
	}
	userID, err := strconv.ParseUint(claims.UserId, 10, 64)
	if err != nil || userID == 0 {
		return httpx.WithRepErr(c, fiber.StatusUnauthorized, httpx.InvalidToken)
	}

	user, err := rt.Users.GetUser(c.UserContext(), userID)
	if err != nil {
		if core.IsNotFound(err) {
			return httpx.WithRepErr(c, fiber.StatusUnauthorized, httpx.UserNotExist)
		}
		return err
	}
	if !user.Ativo {
		return httpx.WithRepErr(c, fiber.StatusUnauthorized, httpx.UserNotExist)
	}

	c.Locals(principalKey, user.Principal())
	c.Locals(ws.UserIDKey, user.ID)
	return c.Next()
}

func principalOf(c *fiber.Ctx) model.Principal {
	p, _ := c.Locals(principalKey).(model.Principal)
	return p
}

// require 在执行操作之前鉴权
func (rt *Router) require(module model.Module, action model.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := rt.Facade.Require(c.UserContext(), principalOf(c), module, action); err != nil {
			return err
		}
		return c.Next()
	}
}
