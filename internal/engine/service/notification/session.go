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

package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/ws"
)

const (
	snapshotLimit  = 50
	sessionTimeout = 5 * time.Second
)

// 客户端动作
const (
	ActionMarkRead    = "mark_read"
	ActionMarkAllRead = "mark_all_read"
	ActionCount       = "count"
)

// ClientMessage 客户端发来的消息
type ClientMessage struct {
	Action string `json:"action"`
	ID     uint64 `json:"id,omitempty"`
}

// SnapshotData 连接建立时的补发数据
type SnapshotData struct {
	Unread int64                `json:"unread"`
	Items  []model.Notification `json:"items"`
}

// ErrorData error 消息的负载
type ErrorData struct {
	Message string `json:"message"`
}

// SessionHandler 实时连接的生命周期处理
type SessionHandler struct {
	dispatcher *Dispatcher
}

var _ ws.Handler = (*SessionHandler)(nil)

func NewSessionHandler(d *Dispatcher) *SessionHandler {
	return &SessionHandler{dispatcher: d}
}

// OnConnect 重连时补发最新的未读通知，不重放错过的推送
func (h *SessionHandler) OnConnect(conn ws.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	userID := conn.UserID()
	unread, err := h.dispatcher.CountUnread(ctx, userID)
	if err != nil {
		return fmt.Errorf("count unread: %w", err)
	}
	items, err := h.dispatcher.List(ctx, userID, true, snapshotLimit)
	if err != nil {
		return fmt.Errorf("list unread: %w", err)
	}

	log.Debugw("live session connected", "usuario_id", userID, "conn_id", conn.ID(), "remote", conn.RemoteAddr(), "unread", unread)
	return conn.Send(Message{Type: TypeSnapshot, Data: SnapshotData{Unread: unread, Items: items}})
}

func (h *SessionHandler) OnMessage(conn ws.Conn, messageType int, data []byte) error {
	if messageType != ws.TextMessage {
		return nil
	}
	var msg ClientMessage
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("malformed message: %w", core.ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()
	userID := conn.UserID()

	switch msg.Action {
	case ActionMarkRead:
		if msg.ID == 0 {
			return fmt.Errorf("id is required: %w", core.ErrInvalidArgument)
		}
		// 成功后 Dispatcher 会把未读数推送给该用户的全部连接
		return h.dispatcher.MarkReadOwned(ctx, userID, msg.ID)
	case ActionMarkAllRead:
		count, err := h.dispatcher.MarkAllRead(ctx, userID)
		if err != nil || count > 0 {
			return err
		}
		return conn.Send(Message{Type: TypeUnread, Data: UnreadData{Unread: 0}})
	case ActionCount:
		unread, err := h.dispatcher.CountUnread(ctx, userID)
		if err != nil {
			return err
		}
		return conn.Send(Message{Type: TypeUnread, Data: UnreadData{Unread: unread}})
	}
	return fmt.Errorf("unknown action %q: %w", msg.Action, core.ErrInvalidArgument)
}

func (h *SessionHandler) OnDisconnect(conn ws.Conn, err error) {
	log.Debugw("live session disconnected", "usuario_id", conn.UserID(), "conn_id", conn.ID(), "reason", err)
}

// OnError 只把错误类别告知客户端
func (h *SessionHandler) OnError(conn ws.Conn, err error) {
	log.Warnw("live session error", "usuario_id", conn.UserID(), "conn_id", conn.ID(), "error", err)
	_ = conn.Send(Message{Type: TypeError, Data: ErrorData{Message: publicMessage(err)}})
}

func publicMessage(err error) string {
	switch {
	case core.IsNotFound(err):
		return "not found"
	case core.IsInvalidArgument(err):
		return "invalid request"
	}
	return "internal error"
}
