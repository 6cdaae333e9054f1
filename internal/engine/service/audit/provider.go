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

package audit

import (
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(ProvideLog)

// ProvideLog 创建审计日志并导出队列指标
func ProvideLog(r repo.IAuditRepository, opts Options, m *metrics.AccessMetrics, server *metrics.Server) (*Log, func(), error) {
	l := NewLog(r, opts, m)
	if err := metrics.RegisterQueue(server.GetRegistry(), l.Stats()); err != nil {
		l.Close()
		return nil, nil, err
	}
	return l, l.Close, nil
}
