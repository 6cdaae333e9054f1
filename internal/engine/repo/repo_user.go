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

// IUserRepository 只读访问外部维护的用户表
type IUserRepository interface {
	GetUser(ctx context.Context, userID uint64) (*model.User, error)
	UserIDsByRole(ctx context.Context, role model.Role) ([]uint64, error)
}

type UserRepo struct {
	db database.IDatabase
}

func NewUserRepo(db database.IDatabase) IUserRepository {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUser(ctx context.Context, userID uint64) (*model.User, error) {
	var u model.User
	err := r.db.Database().WithContext(ctx).
		Select("id", "nome", "email", "role", "ativo").
		Where("id = ?", userID).
		First(&u).Error
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, notFound(err))
	}
	return &u, nil
}

// UserIDsByRole 返回该角色下所有启用用户的 id
func (r *UserRepo) UserIDsByRole(ctx context.Context, role model.Role) ([]uint64, error) {
	var ids []uint64
	err := r.db.Database().WithContext(ctx).
		Model(&model.User{}).
		Where("role = ? AND ativo = ?", role, true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
