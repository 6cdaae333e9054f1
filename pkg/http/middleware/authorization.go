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
	"errors"
	"strings"

	"github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/http/jwt"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// ClaimsKey 解析后的 claims 在 Locals 中的 key
const ClaimsKey = "claims"

// AuthorizationMiddleware 认证中间件
// secretKey: 用于验证 JWT 的密钥
// 浏览器 websocket 无法带 header，允许 ?token= 传递
func AuthorizationMiddleware(secretKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		aToken, ok := bearerToken(c)
		if !ok {
			return http.WithRepErr(c, fiber.StatusUnauthorized, http.TokenBeEmpty)
		}

		claims, err := jwt.ParseToken(aToken, secretKey)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return http.WithRepErr(c, fiber.StatusUnauthorized, http.TokenExpired)
			}
			log.Debugw("parse token failed", "path", c.Path(), "error", err)
			return http.WithRepErr(c, fiber.StatusUnauthorized, http.InvalidToken)
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// Claims 取出 AuthorizationMiddleware 写入的 claims
func Claims(c *fiber.Ctx) (*jwt.AuthClaims, bool) {
	claims, ok := c.Locals(ClaimsKey).(*jwt.AuthClaims)
	return claims, ok && claims != nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		// 按空格分割
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}
