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

package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/config"
	"github.com/go-arcade/helpdesk/internal/engine/router"
	httpx "github.com/go-arcade/helpdesk/pkg/http"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/go-arcade/helpdesk/pkg/pprof"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type App struct {
	HttpApp       *fiber.App
	MetricsServer *metrics.Server
	PprofServer   *pprof.Server
	Logger        *zap.Logger
	AppConf       *config.AppConfig
}

// InitAppFunc init app function type
type InitAppFunc func(configPath string) (*App, func(), error)

func NewApp(
	logger *zap.Logger,
	rt *router.Router,
	metricsServer *metrics.Server,
	pprofServer *pprof.Server,
	appConf *config.AppConfig,
) (*App, func(), error) {
	httpApp := rt.Router()

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsServer != nil {
			log.Info("Shutting down metrics server...")
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				log.Errorw("Failed to stop metrics server", "error", err)
			}
		}
		if pprofServer != nil {
			if err := pprofServer.Stop(shutdownCtx); err != nil {
				log.Errorw("Failed to stop pprof server", "error", err)
			}
		}
	}

	app := &App{
		HttpApp:       httpApp,
		MetricsServer: metricsServer,
		PprofServer:   pprofServer,
		Logger:        logger,
		AppConf:       appConf,
	}
	return app, cleanup, nil
}

// Bootstrap init app, return App instance and cleanup function
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), error) {
	// Wire build App (所有依赖都由 wire 自动注入)
	app, cleanup, err := initApp(configFile)
	if err != nil {
		return nil, nil, err
	}
	return app, cleanup, nil
}

// Run start app and wait for exit signal, then gracefully shutdown
func Run(app *App, cleanup func()) {
	httpConf := &app.AppConf.Http

	// start metrics server
	if app.MetricsServer != nil {
		if err := app.MetricsServer.Start(); err != nil {
			log.Errorw("Metrics server failed", "error", err)
		}
	}

	if app.PprofServer != nil {
		if err := app.PprofServer.Start(); err != nil {
			log.Errorw("Pprof server failed", "error", err)
		}
	}

	// set signal listener (graceful shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// start HTTP server (async)
	go func() {
		log.Infow("HTTP listener started",
			"address", httpConf.Addr(),
		)
		if err := httpx.Serve(app.HttpApp, httpConf); err != nil {
			log.Errorw("HTTP listener failed",
				"address", httpConf.Addr(),
				"error", err,
			)
			select {
			case quit <- syscall.SIGTERM:
			default:
			}
		}
	}()

	// wait for exit signal
	sig := <-quit
	log.Infof("Received signal: %v, shutting down gracefully...", sig)

	// close HTTP server first so no new events are accepted
	if err := httpx.Shutdown(app.HttpApp, httpConf); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		log.Info("HTTP server shut down gracefully")
	}

	// drain notify/audit queues, then close redis and database
	cleanup()

	log.Info("Server shutdown complete")
	_ = log.Sync()
}
