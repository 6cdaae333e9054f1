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

package permission

import (
	"fmt"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
)

// Matrix module -> action -> allowed
type Matrix map[model.Module]map[model.Action]bool

func newMatrix() Matrix {
	m := make(Matrix, len(model.Modules))
	for _, mod := range model.Modules {
		m[mod] = make(map[model.Action]bool, len(model.Actions))
	}
	return m
}

// DefaultsConfig role -> module -> 允许的动作列表；一项覆盖整个 (role, module) 单元
type DefaultsConfig map[string]map[string][]string

// Defaults 角色默认权限表，构造后只读
type Defaults struct {
	cells map[model.Role]map[model.Module]map[model.Action]bool
}

func grant(d *Defaults, role model.Role, modules []model.Module, actions ...model.Action) {
	if d.cells[role] == nil {
		d.cells[role] = make(map[model.Module]map[model.Action]bool)
	}
	for _, mod := range modules {
		cell := make(map[model.Action]bool, len(actions))
		for _, a := range actions {
			cell[a] = true
		}
		d.cells[role][mod] = cell
	}
}

// BuiltinDefaults 内置默认表：usuario 只读少量模块，tecnico 可操作业务模块但不能删除
func BuiltinDefaults() *Defaults {
	d := &Defaults{cells: make(map[model.Role]map[model.Module]map[model.Action]bool)}

	grant(d, model.RoleUsuario,
		[]model.Module{model.ModuleTickets, model.ModuleConhecimento},
		model.ActionView)

	grant(d, model.RoleTecnico,
		[]model.Module{model.ModuleAtivos, model.ModuleTickets, model.ModuleProjetos, model.ModuleLicencas, model.ModuleConhecimento},
		model.ActionView, model.ActionCreate, model.ActionEdit)
	grant(d, model.RoleTecnico,
		[]model.Module{model.ModuleUsuarios, model.ModuleRelatorios},
		model.ActionView)

	return d
}

// NewDefaults 在内置表上叠加配置
func NewDefaults(conf DefaultsConfig) (*Defaults, error) {
	d := BuiltinDefaults()
	for roleName, modules := range conf {
		role, ok := model.ParseRole(roleName)
		if !ok {
			return nil, fmt.Errorf("role %q: %w", roleName, core.ErrInvalidArgument)
		}
		if role == model.RoleAdmin {
			// admin 不查默认表
			continue
		}
		for moduleName, actionNames := range modules {
			mod, ok := model.ParseModule(moduleName)
			if !ok {
				return nil, fmt.Errorf("module %q: %w", moduleName, core.ErrInvalidArgument)
			}
			actions := make([]model.Action, 0, len(actionNames))
			for _, name := range actionNames {
				a, ok := model.ParseAction(name)
				if !ok {
					return nil, fmt.Errorf("action %q: %w", name, core.ErrInvalidArgument)
				}
				actions = append(actions, a)
			}
			grant(d, role, []model.Module{mod}, actions...)
		}
	}
	return d, nil
}

// Allowed 未知角色一律为 false
func (d *Defaults) Allowed(role model.Role, module model.Module, action model.Action) bool {
	return d.cells[role][module][action]
}
