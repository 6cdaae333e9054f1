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

import "time"

// PermissionOverride 用户级别的权限覆盖，(usuario_id, modulo, acao) 唯一
type PermissionOverride struct {
	UsuarioID uint64    `gorm:"column:usuario_id;primaryKey;autoIncrement:false" json:"usuarioId"`
	Modulo    Module    `gorm:"column:modulo;primaryKey;type:varchar(32)" json:"modulo"`
	Acao      Action    `gorm:"column:acao;primaryKey;type:varchar(16)" json:"acao"`
	Permitido bool      `gorm:"column:permitido;not null" json:"permitido"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (PermissionOverride) TableName() string {
	return "permissoes_usuario"
}
