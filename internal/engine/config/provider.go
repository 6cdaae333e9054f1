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

package config

import (
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/internal/engine/service/access"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	"github.com/go-arcade/helpdesk/internal/engine/service/permission"
	"github.com/go-arcade/helpdesk/pkg/cache"
	"github.com/go-arcade/helpdesk/pkg/database"
	"github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/go-arcade/helpdesk/pkg/pprof"
	"github.com/go-arcade/helpdesk/pkg/queue"
	"github.com/go-arcade/helpdesk/pkg/ws"
	"github.com/google/wire"
)

// ProviderSet 提供配置层相关的依赖
var ProviderSet = wire.NewSet(
	ProvideConf,
	ProvideHttpConfig,
	ProvideLogConfig,
	ProvideDatabaseConfig,
	ProvideRedisConfig,
	ProvideMetricsConfig,
	ProvidePprofConfig,
	ProvideAuditOptions,
	ProvideFacadeOptions,
	ProvideSessionOptions,
	ProvideSectorCacheTTL,
	ProvideRoleDefaults,
	ProvideNotifyRules,
)

// ProvideConf 提供应用配置
func ProvideConf(configPath string) *AppConfig {
	appConf := NewConf(configPath)
	return &appConf
}

// ProvideHttpConfig 提供 HTTP 配置
func ProvideHttpConfig(appConf *AppConfig) *http.Http {
	return &appConf.Http
}

// ProvideLogConfig 提供日志配置
func ProvideLogConfig(appConf *AppConfig) *log.Conf {
	return &appConf.Log
}

// ProvideDatabaseConfig 提供数据库配置
func ProvideDatabaseConfig(appConf *AppConfig) database.Database {
	return appConf.Database
}

// ProvideRedisConfig 提供 Redis 配置
func ProvideRedisConfig(appConf *AppConfig) cache.Redis {
	return appConf.Redis
}

// ProvideMetricsConfig 提供 Metrics 配置
func ProvideMetricsConfig(appConf *AppConfig) metrics.MetricsConfig {
	return appConf.Metrics
}

func ProvidePprofConfig(appConf *AppConfig) pprof.PprofConfig {
	return appConf.Pprof
}

func ProvideAuditOptions(appConf *AppConfig) audit.Options {
	o := audit.Options{
		QueueSize:     appConf.Access.AuditQueueSize,
		Policy:        queue.ParsePolicy(appConf.Access.AuditPolicy),
		WriteAttempts: appConf.Access.AuditWriteAttempts,
	}
	o.SetDefaults()
	return o
}

func ProvideFacadeOptions(appConf *AppConfig) access.Options {
	o := access.Options{
		QueueSize: appConf.Access.NotifyQueueSize,
		Policy:    queue.ParsePolicy(appConf.Access.NotifyPolicy),
	}
	o.SetDefaults()
	return o
}

func ProvideSessionOptions(appConf *AppConfig) ws.Options {
	return ws.Options{
		Buffer:      appConf.Access.SessionBuffer,
		Policy:      queue.ParsePolicy(appConf.Access.SessionPolicy),
		SendTimeout: time.Duration(appConf.Access.SessionSendTimeout) * time.Millisecond,
	}
}

func ProvideSectorCacheTTL(appConf *AppConfig) repo.SectorCacheTTL {
	return repo.SectorCacheTTL(time.Duration(appConf.Access.SectorCacheTTL) * time.Second)
}

func ProvideRoleDefaults(appConf *AppConfig) permission.DefaultsConfig {
	return appConf.Access.Defaults
}

func ProvideNotifyRules(appConf *AppConfig) []access.RuleConfig {
	return appConf.Access.Rules
}
