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
	"runtime/debug"

	"github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/gofiber/fiber/v2"
)

// ExceptionMiddleware panic recover，统一返回 500，不把堆栈暴露给客户端
func ExceptionMiddleware(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic recovered",
				"path", c.Path(),
				"method", c.Method(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = http.WithRepErr(c, fiber.StatusInternalServerError, http.InternalError)
		}
	}()

	return c.Next()
}
