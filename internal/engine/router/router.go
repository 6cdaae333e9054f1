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
	"errors"
	"fmt"
	"strconv"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/internal/engine/service/access"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	"github.com/go-arcade/helpdesk/internal/engine/service/notification"
	"github.com/go-arcade/helpdesk/internal/engine/service/permission"
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/http/middleware"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/version"
	"github.com/go-arcade/helpdesk/pkg/ws"
	"github.com/gofiber/fiber/v2"
)

/**
 * @author: gagral.x@gmail.com
 * @time: 2024/9/8 15:48
 * @file: router.go
 * @description: setup router
 */

type Router struct {
	Http       *httpx.Http
	Facade     *access.Facade
	Manager    *permission.Manager
	Dispatcher *notification.Dispatcher
	Audit      *audit.Log
	Users      repo.IUserRepository
	Hub        ws.Hub
	Session    *notification.SessionHandler
	WsOpts     ws.Options
}

func NewRouter(
	httpConf *httpx.Http,
	facade *access.Facade,
	manager *permission.Manager,
	dispatcher *notification.Dispatcher,
	auditLog *audit.Log,
	users repo.IUserRepository,
	hub ws.Hub,
	session *notification.SessionHandler,
	wsOpts ws.Options,
) *Router {
	return &Router{
		Http:       httpConf,
		Facade:     facade,
		Manager:    manager,
		Dispatcher: dispatcher,
		Audit:      auditLog,
		Users:      users,
		Hub:        hub,
		Session:    session,
		WsOpts:     wsOpts,
	}
}

func (rt *Router) Router() *fiber.App {
	app := fiber.New(rt.Http.FiberConfig("Helpdesk", errorHandler))

	app.Use(
		middleware.ExceptionMiddleware,
		middleware.CorsMiddleware(rt.Http.CorsOrigins),
		middleware.RequestMiddleware(),
		middleware.RealIPMiddleware(),
		httpx.AccessLogFormat(rt.Http, log.GetLogger()),
	)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})

	verify := middleware.AuthorizationMiddleware(rt.Http.Auth.SecretKey)

	// 实时通知
	rt.wsRouter(app, verify, rt.principal)

	api := app.Group("/api/v1", verify, rt.principal)
	{
		rt.permissionRouter(api)
		rt.notificationRouter(api)
		rt.auditRouter(api)
		rt.eventRouter(api)
		rt.sectorRouter(api)
	}

	// 找不到路径时的处理 - 必须在所有路由注册之后
	app.Use(func(c *fiber.Ctx) error {
		return httpx.WithRepErrMsg(c, fiber.StatusNotFound, httpx.NotFound.Code, "request path not found")
	})

	return app
}

// errorHandler 把 core 的错误分类翻译成 http 状态码
// Denied 不带任何细节
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	switch {
	case core.IsDenied(err):
		return httpx.WithRepErr(c, fiber.StatusForbidden, httpx.AccessDenied)
	case core.IsNotFound(err):
		return httpx.WithRepErr(c, fiber.StatusNotFound, httpx.NotFound)
	case core.IsInvalidArgument(err):
		return httpx.WithRepErrMsg(c, fiber.StatusBadRequest, httpx.BadRequest.Code, err.Error())
	case errors.As(err, &fe):
		return httpx.WithRepErrMsg(c, fe.Code, fe.Code, fe.Message)
	default:
		log.Errorw("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals(middleware.RequestIDKey),
			"error", err,
		)
		return httpx.WithRepErr(c, fiber.StatusInternalServerError, httpx.InternalError)
	}
}

func paramUint(c *fiber.Ctx, key string) (uint64, error) {
	v, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil || v == 0 {
		return 0, invalid("%s must be a positive integer", key)
	}
	return v, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{core.ErrInvalidArgument}, args...)...)
}
