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
)

type INotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id uint64) (*model.Notification, error)
	// MarkRead 幂等；id 不存在返回 core.ErrNotFound
	MarkRead(ctx context.Context, id uint64) error
	// MarkAllRead 返回本次被置为已读的条数
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	CountUnread(ctx context.Context, userID uint64) (int64, error)
	// ListByUser 按创建时间倒序，limit <= 0 不限制
	ListByUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error)
}

type NotificationRepo struct {
	db database.IDatabase
}

func NewNotificationRepo(db database.IDatabase) INotificationRepository {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.Database().WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) Get(ctx context.Context, id uint64) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.Database().WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, fmt.Errorf("notification %d: %w", id, notFound(err))
	}
	return &n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64) error {
	n, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Lida {
		return nil
	}
	return r.db.Database().WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND lida = ?", id, false).
		Update("lida", true).Error
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res := r.db.Database().WithContext(ctx).
		Model(&model.Notification{}).
		Where("usuario_id = ? AND lida = ?", userID, false).
		Update("lida", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.Database().WithContext(ctx).
		Model(&model.Notification{}).
		Where("usuario_id = ? AND lida = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	tx := r.db.Database().WithContext(ctx).Where("usuario_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("lida = ?", false)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var list []model.Notification
	err := tx.Order("criado_em DESC").Order("id DESC").Find(&list).Error
	return list, err
}
