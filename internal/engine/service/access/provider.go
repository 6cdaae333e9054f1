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

package access

import (
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	"github.com/go-arcade/helpdesk/internal/engine/service/notification"
	"github.com/go-arcade/helpdesk/internal/engine/service/permission"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(ProvideRuleTable, ProvideFacade)

// ProvideRuleTable 内置规则加上配置中追加的规则
func ProvideRuleTable(extra []RuleConfig) (*RuleTable, error) {
	t, err := NewRuleTable(DefaultRules()...)
	if err != nil {
		return nil, err
	}
	for _, c := range extra {
		r, err := c.ToRule()
		if err != nil {
			return nil, err
		}
		if err := t.Register(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func ProvideFacade(
	resolver *permission.Resolver,
	auditLog *audit.Log,
	dispatcher *notification.Dispatcher,
	users repo.IUserRepository,
	rules *RuleTable,
	opts Options,
	server *metrics.Server,
) (*Facade, func(), error) {
	f := NewFacade(resolver, auditLog, dispatcher, users, rules, opts)
	if err := metrics.RegisterQueue(server.GetRegistry(), f.Stats()); err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, f.Close, nil
}
