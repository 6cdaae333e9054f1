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

// User 用户表，由用户管理模块维护，本模块只读取 id 与 role
type User struct {
	ID    uint64 `gorm:"column:id;primaryKey" json:"id"`
	Nome  string `gorm:"column:nome" json:"nome"`
	Email string `gorm:"column:email" json:"email"`
	Role  Role   `gorm:"column:role;type:varchar(20)" json:"role"`
	Ativo bool   `gorm:"column:ativo;default:true" json:"ativo"`
}

func (User) TableName() string {
	return "usuarios"
}

// Principal 转换为鉴权主体
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

// SectorTechnician 技术员与setor的绑定关系（外部维护，只读）
type SectorTechnician struct {
	SetorID   uint64 `gorm:"column:setor_id;primaryKey" json:"setorId"`
	UsuarioID uint64 `gorm:"column:usuario_id;primaryKey" json:"usuarioId"`
}

func (SectorTechnician) TableName() string {
	return "setor_tecnicos"
}
