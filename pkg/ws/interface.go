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

// Conn 表示某个用户的一条实时连接
type Conn interface {
	// ID 返回连接的唯一标识符
	ID() string

	// UserID 连接所属用户
	UserID() uint64

	// Send 把 v 编码为 JSON 放入发送缓冲区，由单独的写协程按顺序发出。
	// 连接已关闭时立即返回 ErrConnectionClosed
	Send(v any) error

	// Close 关闭连接
	Close() error

	// RemoteAddr 返回远程地址
	RemoteAddr() string
}

// Hub 按用户管理实时连接，同一用户可以同时持有多条连接
type Hub interface {
	// Register 注册一个新连接
	Register(conn Conn)

	// Unregister 注销一个连接
	Unregister(conn Conn)

	// SendToUser 推送给该用户的全部连接，返回成功与失败的连接数
	SendToUser(userID uint64, v any) (delivered, failed int)

	// Online 用户是否有活动连接
	Online(userID uint64) bool

	// Sessions 返回用户当前的连接
	Sessions(userID uint64) []Conn

	// Count 返回当前连接数
	Count() int
}

// Handler 处理 WebSocket 连接的生命周期事件
type Handler interface {
	// OnConnect 当连接建立并注册后调用
	OnConnect(conn Conn) error

	// OnMessage 当收到消息时调用
	OnMessage(conn Conn, messageType int, data []byte) error

	// OnDisconnect 当连接断开时调用
	OnDisconnect(conn Conn, err error)

	// OnError 当发生错误时调用
	OnError(conn Conn, err error)
}

// MessageType WebSocket 消息类型常量
const (
	// TextMessage 文本消息
	TextMessage = 1
	// BinaryMessage 二进制消息
	BinaryMessage = 2
	// CloseMessage 关闭消息
	CloseMessage = 8
	// PingMessage ping 消息
	PingMessage = 9
	// PongMessage pong 消息
	PongMessage = 10
)
