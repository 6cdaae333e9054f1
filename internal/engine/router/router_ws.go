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
	"github.com/go-arcade/helpdesk/pkg/ws"
	"github.com/gofiber/fiber/v2"
)

// wsRouter 浏览器通过 ?token= 鉴权
func (rt *Router) wsRouter(app *fiber.App, auth ...fiber.Handler) {
	handlers := make([]fiber.Handler, 0, len(auth)+2)
	handlers = append(handlers, auth...)
	handlers = append(handlers, upgradeOnly, ws.Handle(rt.Hub, rt.Session, rt.WsOpts))
	app.Get("/ws/notifications", handlers...)
}

func upgradeOnly(c *fiber.Ctx) error {
	if !ws.IsUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}
