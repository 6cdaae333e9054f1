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

package database

import (
	"github.com/google/wire"
	"gorm.io/gorm"
)

// ProviderSet provides database-related dependencies
var ProviderSet = wire.NewSet(
	ProvideGorm,
	ProvideIDatabase,
)

// ProvideGorm opens the configured relational database
func ProvideGorm(conf Database) (*gorm.DB, func(), error) {
	db, err := NewDatabase(conf)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = Close(db) }, nil
}

// ProvideIDatabase wraps *gorm.DB for the repositories
func ProvideIDatabase(db *gorm.DB) IDatabase {
	return NewGormDB(db)
}
