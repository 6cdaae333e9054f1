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

package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

/**
 * @author: gagral.x@gmail.com
 * @time: 2024/9/8 15:38
 * @file: http.go
 * @description: http server
 */

type Http struct {
	Host            string
	Port            int
	AccessLog       bool
	CorsOrigins     string
	ExposeMetrics   bool
	BodyLimit       int
	ReadTimeout     int
	WriteTimeout    int
	IdleTimeout     int
	ShutdownTimeout int
	TLS             TLS
	Auth            Auth
}

type TLS struct {
	CertFile string
	KeyFile  string
}

type Auth struct {
	SecretKey    string
	AccessExpire time.Duration // 如 "24h"，仅 token 子命令签发时使用
}

// SetDefaults 设置默认值
func (h *Http) SetDefaults() {
	if h.Host == "" {
		h.Host = "0.0.0.0"
	}
	if h.Port == 0 {
		h.Port = 8080
	}
	if h.BodyLimit <= 0 {
		h.BodyLimit = 4 * 1024 * 1024
	}
	if h.ReadTimeout == 0 {
		h.ReadTimeout = 30
	}
	if h.WriteTimeout == 0 {
		h.WriteTimeout = 30
	}
	if h.IdleTimeout == 0 {
		h.IdleTimeout = 120
	}
	if h.ShutdownTimeout == 0 {
		h.ShutdownTimeout = 30
	}
	if h.Auth.AccessExpire == 0 {
		h.Auth.AccessExpire = 24 * time.Hour
	}
}

// Validate 校验配置
func (h *Http) Validate() error {
	if h.Port <= 0 || h.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", h.Port)
	}
	if h.Auth.SecretKey == "" {
		return errors.New("http.auth.secretKey is required")
	}
	if (h.TLS.CertFile == "") != (h.TLS.KeyFile == "") {
		return errors.New("http.tls requires both certFile and keyFile")
	}
	return nil
}

func (h *Http) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// FiberConfig 构造 fiber 配置，ErrorHandler 由调用方决定
func (h *Http) FiberConfig(appName string, errHandler fiber.ErrorHandler) fiber.Config {
	return fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(h.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(h.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(h.IdleTimeout) * time.Second,
		BodyLimit:             h.BodyLimit,
		ErrorHandler:          errHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		// 参数值会被异步队列和权限快照持有，不能复用请求缓冲
		Immutable: true,
	}
}

// Serve 阻塞监听，开启 TLS 时走 ListenTLS
func Serve(app *fiber.App, cfg *Http) error {
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return app.ListenTLS(cfg.Addr(), cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}
	return app.Listen(cfg.Addr())
}

// Shutdown 在 ShutdownTimeout 内优雅关闭
func Shutdown(app *fiber.App, cfg *Http) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	return app.ShutdownWithContext(ctx)
}
