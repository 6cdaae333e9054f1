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

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// IPKey 真实 IP 在 Locals 中的 key
const IPKey = "ip"

// RealIPMiddleware 获取真实 IP 中间件
func RealIPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if xff := c.Get("X-Forwarded-For"); xff != "" {
			// XFF: client, proxy1, proxy2
			if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
				c.Locals(IPKey, ip)
				return c.Next()
			}
		}
		if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
			c.Locals(IPKey, ip)
			return c.Next()
		}
		c.Locals(IPKey, c.IP())
		return c.Next()
	}
}

// RealIP 返回 RealIPMiddleware 记录的地址，未经过中间件时退回 c.IP()
func RealIP(c *fiber.Ctx) string {
	if ip, ok := c.Locals(IPKey).(string); ok && ip != "" {
		return ip
	}
	return c.IP()
}
