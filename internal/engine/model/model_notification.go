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

// NotificationType 通知类型
type NotificationType string

const (
	NotificationSucesso NotificationType = "sucesso"
	NotificationAviso   NotificationType = "aviso"
	NotificationErro    NotificationType = "erro"
	NotificationInfo    NotificationType = "info"
	NotificationOther   NotificationType = "other"
)

// NormalizeNotificationType maps unknown values to NotificationOther.
func NormalizeNotificationType(s string) NotificationType {
	switch t := NotificationType(s); t {
	case NotificationSucesso, NotificationAviso, NotificationErro, NotificationInfo:
		return t
	}
	return NotificationOther
}

// Notification 用户通知，只允许把 lida 从 false 改为 true
type Notification struct {
	ID        uint64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UsuarioID uint64           `gorm:"column:usuario_id;not null;index:idx_notificacoes_usuario_lida" json:"usuarioId"`
	Tipo      NotificationType `gorm:"column:tipo;type:varchar(16);not null" json:"tipo"`
	Titulo    string           `gorm:"column:titulo;type:varchar(255);not null" json:"titulo"`
	Mensagem  string           `gorm:"column:mensagem;type:text" json:"mensagem"`
	Link      *string          `gorm:"column:link;type:varchar(512)" json:"link"`
	Lida      bool             `gorm:"column:lida;not null;default:false;index:idx_notificacoes_usuario_lida" json:"lida"`
	CriadoEm  time.Time        `gorm:"column:criado_em;index" json:"criadoEm"`
}

func (Notification) TableName() string {
	return "notificacoes"
}
