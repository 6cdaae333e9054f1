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
	"time"

	"github.com/go-arcade/helpdesk/pkg/cache"
	"github.com/go-arcade/helpdesk/pkg/database"
	"github.com/google/wire"
)

// SectorCacheTTL setor 绑定的缓存时长
type SectorCacheTTL time.Duration

// ProviderSet 提供仓储层相关的依赖
var ProviderSet = wire.NewSet(
	ProvideRepositories,
	wire.FieldsOf(new(*Repositories), "User", "Permission", "Audit", "Notification", "Sector"),
)

// ProvideRepositories 提供全部仓储实例
func ProvideRepositories(db database.IDatabase, c cache.ICache, ttl SectorCacheTTL) *Repositories {
	return NewRepositories(db, c, time.Duration(ttl))
}
