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

package ws

import (
	"errors"
	"sync"

	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
)

// DefaultHub 默认的连接管理器实现
type DefaultHub struct {
	mu sync.RWMutex
	// users userID -> connID -> conn
	users   map[uint64]map[string]Conn
	count   int
	metrics *metrics.AccessMetrics
}

// NewHub 创建一个新的连接管理器
func NewHub(m *metrics.AccessMetrics) *DefaultHub {
	return &DefaultHub{
		users:   make(map[uint64]map[string]Conn),
		metrics: m,
	}
}

// Register 注册一个新连接，重复注册同一连接无副作用
func (h *DefaultHub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[conn.UserID()]
	if !ok {
		conns = make(map[string]Conn)
		h.users[conn.UserID()] = conns
	}
	if _, exists := conns[conn.ID()]; exists {
		return
	}
	conns[conn.ID()] = conn
	h.count++
	h.metrics.SessionOpened()
}

// Unregister 注销一个连接，未注册的连接直接忽略
func (h *DefaultHub) Unregister(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[conn.UserID()]
	if !ok {
		return
	}
	if _, exists := conns[conn.ID()]; !exists {
		return
	}
	delete(conns, conn.ID())
	if len(conns) == 0 {
		delete(h.users, conn.UserID())
	}
	h.count--
	h.metrics.SessionClosed()
}

// SendToUser 已关闭的连接立即注销，不重试
func (h *DefaultHub) SendToUser(userID uint64, v any) (delivered, failed int) {
	for _, c := range h.Sessions(userID) {
		err := c.Send(v)
		if err == nil {
			delivered++
			continue
		}
		failed++
		log.Warnw("live push failed", "usuario_id", userID, "conn_id", c.ID(), "error", err)
		if errors.Is(err, ErrConnectionClosed) {
			h.Unregister(c)
		}
	}
	return delivered, failed
}

func (h *DefaultHub) Online(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *DefaultHub) Sessions(userID uint64) []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.users[userID]
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// Count 返回当前连接数
func (h *DefaultHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
