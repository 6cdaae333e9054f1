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

package pprof

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-arcade/helpdesk/pkg/log"
)

// PprofConfig 调试端口，默认关闭；只应绑定在内网地址
type PprofConfig struct {
	Enable bool
	Host   string
	Port   int
	Path   string
}

func (p *PprofConfig) SetDefaults() {
	if p.Host == "" {
		p.Host = "127.0.0.1"
	}
	if p.Port == 0 {
		p.Port = 6060
	}
	if p.Path == "" {
		p.Path = "/debug/pprof"
	}
}

func (p *PprofConfig) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

type Server struct {
	config PprofConfig
	server *http.Server
}

func NewServer(config PprofConfig) *Server {
	config.SetDefaults()
	return &Server{config: config}
}

// Handler 注册 runtime/pprof 的全部 profile
func (s *Server) Handler() http.Handler {
	prefix := s.config.Path
	mux := http.NewServeMux()
	mux.HandleFunc(prefix+"/", pprof.Index)
	mux.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
	mux.HandleFunc(prefix+"/profile", pprof.Profile)
	mux.HandleFunc(prefix+"/symbol", pprof.Symbol)
	mux.HandleFunc(prefix+"/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle(prefix+"/"+name, pprof.Handler(name))
	}
	return mux
}

// Start 端口被占用时直接返回错误，不影响主服务
func (s *Server) Start() error {
	if !s.config.Enable {
		log.Debug("pprof server is disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("pprof listen %s: %w", s.config.Addr(), err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infow("pprof server started", "address", ln.Addr().String(), "path", s.config.Path)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("pprof server stopped", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
