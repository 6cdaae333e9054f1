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

package access

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
)

// Target 通知接收方的解析方式
type Target string

const (
	TargetAssignee Target = "assignee" // 事件的负责人
	TargetSector   Target = "sector"   // 事件所属 setor 的全部技术员
	TargetRole     Target = "role"     // 某角色的全部用户
	TargetUsers    Target = "users"    // 固定用户列表加上事件携带的接收人
)

// Rule 一条 事件 -> 接收方 规则。模板支持 {acao} {modulo} {registro_id} {usuario_id}
type Rule struct {
	Event    string // modulo:acao
	Target   Target
	Role     model.Role
	Users    []uint64
	Tipo     model.NotificationType
	Titulo   string
	Mensagem string
	Link     string
	// IncludeActor 为 false 时不通知事件的发起人（sector 目标不受影响）
	IncludeActor bool
}

// RuleConfig 配置文件中的规则
type RuleConfig struct {
	Event        string   `mapstructure:"event"`
	Target       string   `mapstructure:"target"`
	Role         string   `mapstructure:"role"`
	Users        []uint64 `mapstructure:"users"`
	Tipo         string   `mapstructure:"tipo"`
	Titulo       string   `mapstructure:"titulo"`
	Mensagem     string   `mapstructure:"mensagem"`
	Link         string   `mapstructure:"link"`
	IncludeActor bool     `mapstructure:"includeActor"`
}

// ToRule 转换并校验
func (c RuleConfig) ToRule() (Rule, error) {
	r := Rule{
		Event:        c.Event,
		Target:       Target(strings.ToLower(c.Target)),
		Users:        c.Users,
		Tipo:         model.NormalizeNotificationType(c.Tipo),
		Titulo:       c.Titulo,
		Mensagem:     c.Mensagem,
		Link:         c.Link,
		IncludeActor: c.IncludeActor,
	}
	if c.Role != "" {
		role, ok := model.ParseRole(c.Role)
		if !ok {
			return Rule{}, fmt.Errorf("rule %s: role %q: %w", c.Event, c.Role, core.ErrInvalidArgument)
		}
		r.Role = role
	}
	return r, r.validate()
}

func (r Rule) validate() error {
	modulo, acao, ok := strings.Cut(r.Event, ":")
	if !ok || modulo == "" || acao == "" {
		return fmt.Errorf("rule event %q must be modulo:acao: %w", r.Event, core.ErrInvalidArgument)
	}
	switch r.Target {
	case TargetAssignee, TargetSector:
	case TargetRole:
		if !r.Role.Valid() {
			return fmt.Errorf("rule %s: role target needs a role: %w", r.Event, core.ErrInvalidArgument)
		}
	case TargetUsers:
	default:
		return fmt.Errorf("rule %s: unknown target %q: %w", r.Event, r.Target, core.ErrInvalidArgument)
	}
	if strings.TrimSpace(r.Titulo) == "" {
		return fmt.Errorf("rule %s: titulo is required: %w", r.Event, core.ErrInvalidArgument)
	}
	return nil
}

func eventKey(modulo, acao string) string {
	return strings.ToLower(modulo) + ":" + strings.ToLower(acao)
}

// RuleTable 事件到接收方的映射，可在运行时追加
type RuleTable struct {
	mu    sync.RWMutex
	rules map[string][]Rule
}

func NewRuleTable(rules ...Rule) (*RuleTable, error) {
	t := &RuleTable{rules: make(map[string][]Rule)}
	for _, r := range rules {
		if err := t.Register(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Register 追加一条规则；同一事件可以有多条规则
func (t *RuleTable) Register(r Rule) error {
	if err := r.validate(); err != nil {
		return err
	}
	modulo, acao, _ := strings.Cut(r.Event, ":")
	key := eventKey(modulo, acao)
	r.Event = key

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules[key] = append(t.rules[key], r)
	return nil
}

// Lookup 返回规则副本
func (t *RuleTable) Lookup(modulo, acao string) []Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Rule(nil), t.rules[eventKey(modulo, acao)]...)
}

const recordLink = "/{modulo}/{registro_id}"

// DefaultRules 内置规则
func DefaultRules() []Rule {
	rules := []Rule{
		{
			Event: "tickets:criou", Target: TargetSector, Tipo: model.NotificationInfo,
			Titulo: "Novo ticket #{registro_id}", Mensagem: "Um novo ticket foi aberto no seu setor.", Link: recordLink,
		},
		{
			Event: "tickets:atribuiu", Target: TargetAssignee, Tipo: model.NotificationInfo,
			Titulo: "Ticket #{registro_id} atribuído a você", Mensagem: "Você é o novo responsável por este ticket.", Link: recordLink,
		},
		{
			Event: "tickets:alterou_status", Target: TargetAssignee, Tipo: model.NotificationInfo,
			Titulo: "Status do ticket #{registro_id} alterado", Mensagem: "O status de um ticket sob sua responsabilidade mudou.", Link: recordLink,
		},
		{
			Event: "tickets:comentou", Target: TargetAssignee, Tipo: model.NotificationInfo,
			Titulo: "Novo comentário no ticket #{registro_id}", Mensagem: "Há um novo comentário em um ticket seu.", Link: recordLink,
		},
	}
	for _, modulo := range []model.Module{model.ModuleUsuarios, model.ModuleAtivos, model.ModuleLicencas} {
		rules = append(rules, Rule{
			Event: string(modulo) + ":excluiu", Target: TargetRole, Role: model.RoleAdmin, Tipo: model.NotificationAviso,
			Titulo:   "Registro #{registro_id} excluído em {modulo}",
			Mensagem: "O usuário #{usuario_id} excluiu um registro de {modulo}.",
			Link:     recordLink,
		})
	}
	return rules
}

// render 替换模板占位符；nil 值替换为空串
func render(tpl string, e Event) string {
	if tpl == "" || !strings.Contains(tpl, "{") {
		return tpl
	}
	registro, usuario := "", ""
	if e.RegistroID != nil {
		registro = strconv.FormatInt(*e.RegistroID, 10)
	}
	if e.UsuarioID != nil {
		usuario = strconv.FormatUint(*e.UsuarioID, 10)
	}
	return strings.NewReplacer(
		"{acao}", e.Acao,
		"{modulo}", e.Modulo,
		"{registro_id}", registro,
		"{usuario_id}", usuario,
	).Replace(tpl)
}
