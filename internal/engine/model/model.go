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

package model

import "strings"

// Role 用户的粗粒度角色
type Role string

const (
	RoleAdmin   Role = "admin"   // 管理员，绕过所有权限检查
	RoleTecnico Role = "tecnico" // 技术员
	RoleUsuario Role = "usuario" // 普通用户
)

// Module 受独立权限控制的功能区域，集合固定，运行时不可扩展
type Module string

const (
	ModuleAtivos       Module = "ativos"
	ModuleTickets      Module = "tickets"
	ModuleProjetos     Module = "projetos"
	ModuleLicencas     Module = "licencas"
	ModuleUsuarios     Module = "usuarios"
	ModuleConhecimento Module = "conhecimento"
	ModuleRelatorios   Module = "relatorios"
	ModuleAuditoria    Module = "auditoria"
)

// Action 权限检查的最小粒度
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Modules 全部模块，顺序即权限矩阵的展示顺序
var Modules = []Module{
	ModuleAtivos,
	ModuleTickets,
	ModuleProjetos,
	ModuleLicencas,
	ModuleUsuarios,
	ModuleConhecimento,
	ModuleRelatorios,
	ModuleAuditoria,
}

// Actions 全部动作
var Actions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTecnico, RoleUsuario:
		return true
	}
	return false
}

// Valid reports whether m belongs to the fixed module set.
func (m Module) Valid() bool {
	for _, known := range Modules {
		if m == known {
			return true
		}
	}
	return false
}

// Valid reports whether a is one of view/create/edit/delete.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// ParseRole 大小写不敏感
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// ParseModule 大小写不敏感
func ParseModule(s string) (Module, bool) {
	m := Module(strings.ToLower(strings.TrimSpace(s)))
	return m, m.Valid()
}

// ParseAction 大小写不敏感
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	return a, a.Valid()
}

// Principal 发起请求的用户，由请求处理方提供
type Principal struct {
	UserID uint64 `json:"userId"`
	Role   Role   `json:"role"`
}

// IsAdmin 管理员判断
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
