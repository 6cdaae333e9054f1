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
	"errors"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-arcade/helpdesk/internal/engine/service/access"
	"github.com/go-arcade/helpdesk/internal/engine/service/permission"
	"github.com/go-arcade/helpdesk/pkg/cache"
	"github.com/go-arcade/helpdesk/pkg/database"
	"github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/go-arcade/helpdesk/pkg/pprof"
	"github.com/go-arcade/helpdesk/pkg/queue"
	"github.com/spf13/viper"
)

// AccessConfig 权限、审计、通知相关配置
type AccessConfig struct {
	AuditQueueSize     int
	AuditPolicy        string // block | drop_oldest
	AuditWriteAttempts int
	NotifyQueueSize    int
	NotifyPolicy       string
	SessionBuffer      int
	SessionPolicy      string
	SessionSendTimeout int // 毫秒
	SectorCacheTTL     int // 秒
	Defaults           permission.DefaultsConfig
	Rules              []access.RuleConfig
}

func (a *AccessConfig) SetDefaults() {
	if a.AuditQueueSize <= 0 {
		a.AuditQueueSize = 4096
	}
	if a.NotifyQueueSize <= 0 {
		a.NotifyQueueSize = 1024
	}
	if a.SessionBuffer <= 0 {
		a.SessionBuffer = 64
	}
	if a.SessionPolicy == "" {
		a.SessionPolicy = string(queue.PolicyDropOldest)
	}
	if a.SessionSendTimeout <= 0 {
		a.SessionSendTimeout = 200
	}
	if a.SectorCacheTTL <= 0 {
		a.SectorCacheTTL = 60
	}
}

func (a *AccessConfig) Validate() error {
	for name, p := range map[string]string{
		"auditPolicy":   a.AuditPolicy,
		"notifyPolicy":  a.NotifyPolicy,
		"sessionPolicy": a.SessionPolicy,
	} {
		if p != "" && p != string(queue.PolicyBlock) && p != string(queue.PolicyDropOldest) {
			return fmt.Errorf("access.%s: unknown policy %q", name, p)
		}
	}
	return nil
}

type AppConfig struct {
	Log      log.Conf
	Http     http.Http
	Database database.Database
	Redis    cache.Redis
	Metrics  metrics.MetricsConfig
	Pprof    pprof.PprofConfig
	Access   AccessConfig
}

// SetDefaults 补齐各段默认值
func (c *AppConfig) SetDefaults() {
	def := log.SetDefaults()
	if c.Log.Output == "" {
		c.Log.Output = def.Output
	}
	if c.Log.Path == "" {
		c.Log.Path = def.Path
	}
	if c.Log.Filename == "" {
		c.Log.Filename = def.Filename
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Level
	}
	c.Http.SetDefaults()
	c.Database.SetDefaults()
	c.Pprof.SetDefaults()
	c.Access.SetDefaults()
}

func (c *AppConfig) Validate() error {
	return errors.Join(
		c.Log.Validate(),
		c.Http.Validate(),
		c.Database.Validate(),
		c.Access.Validate(),
	)
}

var (
	cfg  AppConfig
	once sync.Once
)

func NewConf(confDir string) AppConfig {
	once.Do(func() {
		var err error
		cfg, err = LoadConfigFile(confDir)
		if err != nil {
			panic(fmt.Sprintf("load config file error: %s", err))
		}
	})
	return cfg
}

// LoadConfigFile load config file
// 热加载只对日志级别生效，其余配置需要重启
func LoadConfigFile(confDir string) (AppConfig, error) {
	var c AppConfig

	config := viper.New()
	config.SetConfigFile(confDir) //文件名
	if err := config.ReadInConfig(); err != nil {
		return c, fmt.Errorf("failed to read configuration file: %w", err)
	}
	if err := config.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("failed to unmarshal configuration file: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}

	config.OnConfigChange(func(e fsnotify.Event) {
		var next AppConfig
		if err := config.Unmarshal(&next); err != nil {
			log.Errorw("failed to unmarshal configuration file", "path", e.Name, "error", err)
			return
		}
		next.SetDefaults()
		log.SetLevel(next.Log.Level)
		log.Infow("config file changed, log level reloaded",
			"path", e.Name,
			"level", next.Log.Level,
		)
	})
	config.WatchConfig()

	log.Infow("config file loaded",
		"path", confDir,
	)
	return c, nil
}
