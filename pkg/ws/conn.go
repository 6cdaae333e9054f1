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
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/helpdesk/pkg/id"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/queue"
	"github.com/go-arcade/helpdesk/pkg/safe"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	readlimit  = 1024 * 64           // 64KB，客户端只发送小的控制消息
	pongWait   = 60 * time.Second    // 等待 pong 响应的超时时间
	pingPeriod = (pongWait * 9) / 10 // ping 发送周期，应该小于 pongWait
	writeWait  = 10 * time.Second    // 写入超时时间

	// UserIDKey 鉴权中间件写入 fiber Locals 的用户 id
	UserIDKey = "userId"
)

// Options 每条连接的发送缓冲配置
type Options struct {
	Buffer      int
	Policy      queue.Policy
	SendTimeout time.Duration
}

// socket 是 *websocket.Conn 中用到的部分
type socket interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
	RemoteAddr() net.Addr
}

// conn WebSocket 连接实现
type conn struct {
	sock      socket
	id        string
	userID    uint64
	out       *queue.Queue[[]byte]
	closeOnce sync.Once
	closed    chan struct{}
}

// newConn 创建连接并启动写协程
func newConn(sock socket, userID uint64, opts Options) *conn {
	c := &conn{
		sock:   sock,
		id:     id.NewSessionID(),
		userID: userID,
		closed: make(chan struct{}),
	}
	c.out = queue.New(queue.Options{
		Name:         "ws:" + c.id,
		Capacity:     opts.Buffer,
		Policy:       opts.Policy,
		BlockTimeout: opts.SendTimeout,
		OnDrop: func() {
			log.Warnw("websocket send buffer overflow", "conn_id", c.id, "usuario_id", userID)
		},
	}, c.write)
	return c
}

// ID 返回连接的唯一标识符
func (c *conn) ID() string {
	return c.id
}

func (c *conn) UserID() uint64 {
	return c.userID
}

func (c *conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *conn) Send(v any) error {
	if c.isClosed() {
		return ErrConnectionClosed
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	if !c.out.Push(data) {
		if c.isClosed() {
			return ErrConnectionClosed
		}
		return ErrSendBufferFull
	}
	return nil
}

// write 只在写协程中调用，保证同一连接内的消息按入队顺序发出
func (c *conn) write(data []byte) {
	if c.isClosed() {
		return
	}
	_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.sock.WriteMessage(TextMessage, data); err != nil {
		log.Debugw("websocket write failed, closing", "conn_id", c.id, "error", err)
		_ = c.Close()
	}
}

// Close 关闭连接；发送缓冲区在读循环退出时释放
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.sock.Close()
	})
	return err
}

// RemoteAddr 返回远程地址
func (c *conn) RemoteAddr() string {
	if addr := c.sock.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// pingTicker 定期发送 ping 消息以保持连接活跃
func (c *conn) pingTicker() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.sock.WriteControl(PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// userIDFromLocals 兼容中间件写入的多种类型
func userIDFromLocals(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, x != 0
	case int64:
		return uint64(x), x > 0
	case int:
		return uint64(x), x > 0
	case string:
		n, err := strconv.ParseUint(x, 10, 64)
		return n, err == nil && n != 0
	}
	return 0, false
}

// Handle 处理 WebSocket 连接；用户 id 取自 Locals(UserIDKey)
func Handle(hub Hub, handler Handler, opts Options) fiber.Handler {
	return websocket.New(func(wsConn *websocket.Conn) {
		userID, ok := userIDFromLocals(wsConn.Locals(UserIDKey))
		if !ok {
			log.Warnw("websocket upgrade without user", "remote", wsConn.RemoteAddr().String(), "error", ErrUnauthenticated)
			_ = wsConn.Close()
			return
		}

		conn := newConn(wsConn, userID, opts)

		// 设置读取限制和超时
		wsConn.SetReadLimit(readlimit)
		_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
		wsConn.SetPongHandler(func(string) error {
			return wsConn.SetReadDeadline(time.Now().Add(pongWait))
		})

		var once sync.Once
		cleanup := func(err error) {
			once.Do(func() {
				hub.Unregister(conn)
				_ = conn.Close()
				conn.out.Close()
				if handler != nil {
					handler.OnDisconnect(conn, err)
				}
			})
		}
		defer cleanup(nil)

		hub.Register(conn)

		if handler != nil {
			if err := handler.OnConnect(conn); err != nil {
				handler.OnError(conn, err)
				cleanup(err)
				return
			}
		}

		safe.Go(conn.pingTicker)

		// 消息处理循环
		for {
			messageType, message, err := wsConn.ReadMessage()
			if err != nil {
				cleanup(err)
				return
			}
			_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))

			if handler != nil {
				if err := handler.OnMessage(conn, messageType, message); err != nil {
					handler.OnError(conn, err)
				}
			}
		}
	})
}

// IsUpgrade 供路由在升级前判断请求
func IsUpgrade(c *fiber.Ctx) bool {
	return websocket.IsWebSocketUpgrade(c)
}
