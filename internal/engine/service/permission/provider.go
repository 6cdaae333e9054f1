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

package permission

import (
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(ProvideStore, ProvideResolver, ProvideManager)

func ProvideStore(r repo.IPermissionRepository) *Store {
	return NewStore(r)
}

func ProvideResolver(store *Store, conf DefaultsConfig, m *metrics.AccessMetrics) (*Resolver, error) {
	defaults, err := NewDefaults(conf)
	if err != nil {
		return nil, err
	}
	return NewResolver(store, defaults, m), nil
}

func ProvideManager(store *Store, resolver *Resolver, users repo.IUserRepository) *Manager {
	return NewManager(store, resolver, users)
}
