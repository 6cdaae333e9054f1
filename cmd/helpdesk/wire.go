//go:build wireinject
// +build wireinject

package main

import (
	"github.com/go-arcade/helpdesk/internal/engine/bootstrap"
	"github.com/go-arcade/helpdesk/internal/engine/config"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/internal/engine/router"
	"github.com/go-arcade/helpdesk/internal/engine/service/access"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	"github.com/go-arcade/helpdesk/internal/engine/service/notification"
	"github.com/go-arcade/helpdesk/internal/engine/service/permission"
	"github.com/go-arcade/helpdesk/pkg/cache"
	"github.com/go-arcade/helpdesk/pkg/database"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/go-arcade/helpdesk/pkg/pprof"
	"github.com/go-arcade/helpdesk/pkg/ws"
	"github.com/google/wire"
)

func initApp(configPath string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		// 配置层
		config.ProviderSet,
		// 日志层（依赖 config）
		log.ProviderSet,
		// 数据库、缓存层（依赖 config）
		database.ProviderSet,
		cache.ProviderSet,
		// 仓储层
		repo.ProviderSet,
		// 指标层
		metrics.ProviderSet,
		pprof.ProviderSet,
		// 会话注册表
		ws.ProviderSet,
		// 服务层
		permission.ProviderSet,
		audit.ProviderSet,
		notification.ProviderSet,
		access.ProviderSet,
		// 路由层
		router.ProviderSet,
		// 应用层
		bootstrap.NewApp,
	))
}
