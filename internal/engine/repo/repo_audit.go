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

package repo

import (
	"context"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/pkg/database"
)

type IAuditRepository interface {
	Insert(ctx context.Context, record *model.AuditRecord) error
	Find(ctx context.Context, filter model.AuditFilter) ([]model.AuditRecord, error)
}

type AuditRepo struct {
	db database.IDatabase
}

func NewAuditRepo(db database.IDatabase) IAuditRepository {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, record *model.AuditRecord) error {
	return r.db.Database().WithContext(ctx).Create(record).Error
}

// Find 条件全部可选，空条件返回全部记录；按写入顺序返回
func (r *AuditRepo) Find(ctx context.Context, filter model.AuditFilter) ([]model.AuditRecord, error) {
	tx := r.db.Database().WithContext(ctx).Model(&model.AuditRecord{})
	if filter.UsuarioID != nil {
		tx = tx.Where("usuario_id = ?", *filter.UsuarioID)
	}
	if filter.Modulo != "" {
		tx = tx.Where("modulo = ?", filter.Modulo)
	}
	if filter.Acao != "" {
		tx = tx.Where("acao = ?", filter.Acao)
	}
	if filter.DataInicio != nil {
		tx = tx.Where("criado_em >= ?", *filter.DataInicio)
	}
	if filter.DataFim != nil {
		tx = tx.Where("criado_em <= ?", *filter.DataFim)
	}

	var records []model.AuditRecord
	err := tx.Order("criado_em ASC").Order("id ASC").Find(&records).Error
	return records, err
}
