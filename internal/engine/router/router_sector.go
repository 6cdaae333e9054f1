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
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/gofiber/fiber/v2"
)

/**
 * @file: router_sector.go
 * @description: setor 绑定由外部维护，修改之后调用这里使缓存失效
 */

func (rt *Router) sectorRouter(r fiber.Router) {
	r.Post("/sectors/:setorId/invalidate", rt.require(model.ModuleUsuarios, model.ActionEdit), rt.invalidateSector)
}

func (rt *Router) invalidateSector(c *fiber.Ctx) error {
	setorID, err := paramUint(c, "setorId")
	if err != nil {
		return err
	}
	rt.Dispatcher.InvalidateSector(c.UserContext(), setorID)
	return httpx.WithRepNotDetail(c)
}
