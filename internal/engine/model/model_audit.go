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

import (
	"time"

	"gorm.io/datatypes"
)

// AuditRecord 审计记录，写入后不可变
type AuditRecord struct {
	ID         uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UsuarioID  *uint64        `gorm:"column:usuario_id;index" json:"usuarioId"` // nil 表示系统操作
	Acao       string         `gorm:"column:acao;type:varchar(64);index" json:"acao"`
	Modulo     string         `gorm:"column:modulo;type:varchar(32);index" json:"modulo"`
	RegistroID *int64         `gorm:"column:registro_id" json:"registroId"`
	Detalhes   datatypes.JSON `gorm:"column:detalhes" json:"detalhes"` // 不解析，原样保存
	IPAddress  *string        `gorm:"column:ip_address;type:varchar(64)" json:"ipAddress"`
	CriadoEm   time.Time      `gorm:"column:criado_em;index" json:"criadoEm"`
}

func (AuditRecord) TableName() string {
	return "logs_auditoria"
}

// AuditFilter 审计查询条件，全部可选；日期区间为闭区间
type AuditFilter struct {
	UsuarioID  *uint64
	Modulo     string
	Acao       string
	DataInicio *time.Time
	DataFim    *time.Time
}
