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

package metrics

import (
	"github.com/google/wire"
)

// ProviderSet provides metrics server and collectors
var ProviderSet = wire.NewSet(ProvideMetricsServer, ProvideAccessMetrics)

// ProvideMetricsServer creates the metrics server
func ProvideMetricsServer(conf MetricsConfig) *Server {
	return NewServer(conf)
}

// ProvideAccessMetrics creates the access collectors and registers them on the server
func ProvideAccessMetrics(server *Server) (*AccessMetrics, error) {
	m := NewAccessMetrics()
	if err := m.Register(server.GetRegistry()); err != nil {
		return nil, err
	}
	return m, nil
}
