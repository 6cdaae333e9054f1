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
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/pkg/cache"
	"github.com/go-arcade/helpdesk/pkg/database"
)

const sectorCacheKey = "helpdesk:setor:%d:tecnicos"

// ISectorRepository 读取 setor 与技术员的绑定（外部维护）
type ISectorRepository interface {
	TechniciansOf(ctx context.Context, setorID uint64) ([]uint64, error)
	// Invalidate 外部修改绑定后调用，否则缓存最长滞后 ttl
	Invalidate(ctx context.Context, setorID uint64)
}

type SectorRepo struct {
	db    database.IDatabase
	cache cache.ICache
	ttl   time.Duration
	load  func(ctx context.Context, setorID uint64) ([]uint64, error)
}

// NewSectorRepo ttl <= 0 时不使用缓存
func NewSectorRepo(db database.IDatabase, c cache.ICache, ttl time.Duration) ISectorRepository {
	if ttl <= 0 {
		c = nil
	}
	r := &SectorRepo{db: db, cache: c, ttl: ttl}
	r.load = r.fromDB
	return r
}

func (r *SectorRepo) fromDB(ctx context.Context, setorID uint64) ([]uint64, error) {
	ids := make([]uint64, 0)
	err := r.db.Database().WithContext(ctx).
		Model(&model.SectorTechnician{}).
		Where("setor_id = ?", setorID).
		Order("usuario_id").
		Pluck("usuario_id", &ids).Error
	return ids, err
}

func (r *SectorRepo) TechniciansOf(ctx context.Context, setorID uint64) ([]uint64, error) {
	return cache.GetOrLoad(ctx, r.cache, fmt.Sprintf(sectorCacheKey, setorID), r.ttl,
		func(ctx context.Context) ([]uint64, error) {
			return r.load(ctx, setorID)
		})
}

func (r *SectorRepo) Invalidate(ctx context.Context, setorID uint64) {
	cache.Invalidate(ctx, r.cache, fmt.Sprintf(sectorCacheKey, setorID))
}
