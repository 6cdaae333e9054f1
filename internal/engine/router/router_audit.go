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
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

func (rt *Router) auditRouter(r fiber.Router) {
	r.Get("/audit", rt.require(model.ModuleAuditoria, model.ActionView), rt.queryAudit)
}

// queryAudit 过滤条件原样透传；不传条件时返回全部记录
func (rt *Router) queryAudit(c *fiber.Ctx) error {
	filter, err := parseAuditFilter(c)
	if err != nil {
		return err
	}
	records, err := rt.Audit.Query(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return httpx.WithRepJSON(c, records)
}

func parseAuditFilter(c *fiber.Ctx) (model.AuditFilter, error) {
	filter := model.AuditFilter{
		Modulo: c.Query("modulo"),
		Acao:   c.Query("acao"),
	}
	if s := c.Query("usuario_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return filter, invalid("usuario_id must be an integer")
		}
		filter.UsuarioID = &id
	}

	inicio, _, err := parseDate(c.Query("data_inicio"))
	if err != nil {
		return filter, invalid("data_inicio: %v", err)
	}
	fim, dateOnly, err := parseDate(c.Query("data_fim"))
	if err != nil {
		return filter, invalid("data_fim: %v", err)
	}
	// 只有日期时覆盖到当天结束
	if fim != nil && dateOnly {
		end := fim.Add(24*time.Hour - time.Nanosecond)
		fim = &end
	}
	if inicio != nil && fim != nil && fim.Before(*inicio) {
		return filter, invalid("data_fim is before data_inicio")
	}
	filter.DataInicio, filter.DataFim = inicio, fim
	return filter, nil
}

// parseDate 支持 RFC3339 和 yyyy-mm-dd
func parseDate(s string) (*time.Time, bool, error) {
	if s == "" {
		return nil, false, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, time.Local); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false, err
	}
	return &t, false, nil
}
