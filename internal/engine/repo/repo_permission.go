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
	"fmt"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IPermissionRepository interface {
	// ListByUser 返回用户的全部覆盖项
	ListByUser(ctx context.Context, userID uint64) ([]model.PermissionOverride, error)
	// Upsert 在一个事务内写入多条覆盖项，同一元组后写覆盖先写
	Upsert(ctx context.Context, overrides ...model.PermissionOverride) error
	// Delete 删除单条覆盖项，不存在时不报错
	Delete(ctx context.Context, userID uint64, module model.Module, action model.Action) error
	// DeleteByUser 删除用户的全部覆盖项
	DeleteByUser(ctx context.Context, userID uint64) error
}

type PermissionRepo struct {
	db database.IDatabase
}

func NewPermissionRepo(db database.IDatabase) IPermissionRepository {
	return &PermissionRepo{db: db}
}

func (r *PermissionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.PermissionOverride, error) {
	var list []model.PermissionOverride
	err := r.db.Database().WithContext(ctx).
		Where("usuario_id = ?", userID).
		Find(&list).Error
	return list, err
}

func (r *PermissionRepo) Upsert(ctx context.Context, overrides ...model.PermissionOverride) error {
	if len(overrides) == 0 {
		return nil
	}
	return r.db.Database().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "usuario_id"}, {Name: "modulo"}, {Name: "acao"}},
			DoUpdates: clause.AssignmentColumns([]string{"permitido", "updated_at"}),
		}).Create(&overrides).Error
		if err != nil {
			return fmt.Errorf("upsert permission overrides: %w", err)
		}
		return nil
	})
}

func (r *PermissionRepo) Delete(ctx context.Context, userID uint64, module model.Module, action model.Action) error {
	return r.db.Database().WithContext(ctx).
		Where("usuario_id = ? AND modulo = ? AND acao = ?", userID, module, action).
		Delete(&model.PermissionOverride{}).Error
}

func (r *PermissionRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	return r.db.Database().WithContext(ctx).
		Where("usuario_id = ?", userID).
		Delete(&model.PermissionOverride{}).Error
}
