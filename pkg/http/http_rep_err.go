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

package http

import (
	"github.com/gofiber/fiber/v2"
)

type ResponseErr struct {
	ErrCode int    `json:"code"`
	ErrMsg  string `json:"errMsg"`
	Path    string `json:"path,omitempty"`
}

// WithRepErr 设置 http 状态码并返回错误体
func WithRepErr(c *fiber.Ctx, status int, rep *Response) error {
	return c.Status(status).JSON(ResponseErr{
		ErrCode: rep.Code,
		ErrMsg:  rep.Msg,
		Path:    c.Path(),
	})
}

// WithRepErrMsg 同 WithRepErr，使用自定义 msg
func WithRepErrMsg(c *fiber.Ctx, status int, code int, errMsg string) error {
	return c.Status(status).JSON(ResponseErr{
		ErrCode: code,
		ErrMsg:  errMsg,
		Path:    c.Path(),
	})
}
