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
	"errors"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/pkg/cache"
	"github.com/go-arcade/helpdesk/pkg/database"
	"gorm.io/gorm"
)

// Repositories 统一管理所有 repository
type Repositories struct {
	User         IUserRepository
	Permission   IPermissionRepository
	Audit        IAuditRepository
	Notification INotificationRepository
	Sector       ISectorRepository
}

// NewRepositories 初始化所有 repository
func NewRepositories(db database.IDatabase, c cache.ICache, sectorTTL time.Duration) *Repositories {
	return &Repositories{
		User:         NewUserRepo(db),
		Permission:   NewPermissionRepo(db),
		Audit:        NewAuditRepo(db),
		Notification: NewNotificationRepo(db),
		Sector:       NewSectorRepo(db, c, sectorTTL),
	}
}

// AutoMigrate 只迁移本模块拥有的表；usuarios / setor_tecnicos 由外部维护
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.PermissionOverride{},
		&model.AuditRecord{},
		&model.Notification{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ErrNotFound
	}
	return err
}
