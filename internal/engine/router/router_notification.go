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
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// 只操作当前用户自己的通知
func (rt *Router) notificationRouter(r fiber.Router) {
	n := r.Group("/notifications")
	{
		n.Get("/", rt.listNotifications)
		n.Get("/unread-count", rt.countUnread)
		n.Put("/read-all", rt.markAllRead)
		n.Put("/:id/read", rt.markRead)
	}
}

func (rt *Router) listNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		return invalid("limit must be between 1 and %d", maxListLimit)
	}
	items, err := rt.Dispatcher.List(c.UserContext(), principalOf(c).UserID, c.QueryBool("unread", false), limit)
	if err != nil {
		return err
	}
	return httpx.WithRepJSON(c, items)
}

func (rt *Router) countUnread(c *fiber.Ctx) error {
	n, err := rt.Dispatcher.CountUnread(c.UserContext(), principalOf(c).UserID)
	if err != nil {
		return err
	}
	return httpx.WithRepJSON(c, fiber.Map{"unread": n})
}

func (rt *Router) markRead(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	// 别人的通知一律按不存在处理
	if err := rt.Dispatcher.MarkReadOwned(c.UserContext(), principalOf(c).UserID, id); err != nil {
		return err
	}
	return httpx.WithRepNotDetail(c)
}

func (rt *Router) markAllRead(c *fiber.Ctx) error {
	n, err := rt.Dispatcher.MarkAllRead(c.UserContext(), principalOf(c).UserID)
	if err != nil {
		return err
	}
	return httpx.WithRepJSON(c, fiber.Map{"updated": n})
}
