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
	"strings"
	"sync"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/go-arcade/helpdesk/pkg/safe"
)

// 推送给客户端的消息类型
const (
	TypeNotification = "notification"
	TypeSnapshot     = "snapshot"
	TypeUnread       = "unread"
	TypeError        = "error"
)

// Message 实时通道上的消息
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// UnreadData unread 消息的负载
type UnreadData struct {
	Unread int64 `json:"unread"`
}

// Pusher 实时推送，ws.Hub 满足该接口
type Pusher interface {
	SendToUser(userID uint64, v any) (delivered, failed int)
}

// Dispatcher 创建通知并推送给在线用户。
// 持久化是唯一的可靠来源，实时推送失败只记录日志
type Dispatcher struct {
	repo    repo.INotificationRepository
	sectors repo.ISectorRepository
	pusher  Pusher
	metrics *metrics.AccessMetrics
	now     func() time.Time
	// 同一用户的 创建+推送 串行，保证连接上按创建顺序收到；
	// 锁按用户区分，慢连接只拖住它自己用户的通知
	locks userLocks
}

type userLock struct {
	sync.Mutex
	refs int
}

// userLocks 按用户 id 分配的互斥锁，无人持有时回收
type userLocks struct {
	mu    sync.Mutex
	locks map[uint64]*userLock
}

func (l *userLocks) lock(userID uint64) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uint64]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func NewDispatcher(r repo.INotificationRepository, sectors repo.ISectorRepository, pusher Pusher, m *metrics.AccessMetrics) *Dispatcher {
	return &Dispatcher{
		repo:    r,
		sectors: sectors,
		pusher:  pusher,
		metrics: m,
		now:     time.Now,
	}
}

// NotifyUser 总是先落库（lida=false），再尽力推送给该用户的全部在线连接
func (d *Dispatcher) NotifyUser(ctx context.Context, userID uint64, tipo model.NotificationType, titulo, mensagem string, link *string) (*model.Notification, error) {
	if userID == 0 {
		return nil, fmt.Errorf("usuario_id is required: %w", core.ErrInvalidArgument)
	}
	if strings.TrimSpace(titulo) == "" {
		return nil, fmt.Errorf("titulo is required: %w", core.ErrInvalidArgument)
	}

	n := &model.Notification{
		UsuarioID: userID,
		Tipo:      model.NormalizeNotificationType(string(tipo)),
		Titulo:    titulo,
		Mensagem:  mensagem,
		Link:      link,
		Lida:      false,
		CriadoEm:  d.now(),
	}

	unlock := d.locks.lock(userID)
	defer unlock()

	if err := d.repo.Create(ctx, n); err != nil {
		d.metrics.Notification("failed")
		return nil, fmt.Errorf("store notification for user %d: %w", userID, err)
	}
	d.metrics.Notification("stored")

	d.push(userID, Message{Type: TypeNotification, Data: n}, "notification_id", n.ID)
	return n, nil
}

func (d *Dispatcher) push(userID uint64, msg Message, keysAndValues ...any) {
	if d.pusher == nil {
		return
	}
	safe.BestEffort("notification.push", func() error {
		delivered, failed := d.pusher.SendToUser(userID, msg)
		if delivered > 0 && msg.Type == TypeNotification {
			d.metrics.Notification("live")
		}
		if failed > 0 {
			d.metrics.Notification("failed")
			return fmt.Errorf("%w: %d of %d sessions", core.ErrDeliveryFailed, failed, delivered+failed)
		}
		return nil
	}, append([]any{"usuario_id", userID, "type", msg.Type}, keysAndValues...)...)
}

// NotifyUsers 逐个通知，单个失败不影响其余用户；返回成功条数
func (d *Dispatcher) NotifyUsers(ctx context.Context, userIDs []uint64, tipo model.NotificationType, titulo, mensagem string, link *string) int {
	seen := make(map[uint64]struct{}, len(userIDs))
	sent := 0
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		ok := safe.BestEffort("notification.notify_user", func() error {
			_, err := d.NotifyUser(ctx, uid, tipo, titulo, mensagem, link)
			return err
		}, "usuario_id", uid)
		if ok {
			sent++
		}
	}
	return sent
}

// NotifySectorTechnicians 通知绑定到 setor 的所有技术员。
// 没有绑定不是错误；只有绑定关系无法读取时返回错误
func (d *Dispatcher) NotifySectorTechnicians(ctx context.Context, setorID uint64, tipo model.NotificationType, titulo, mensagem string, link *string) (int, error) {
	ids, err := d.sectors.TechniciansOf(ctx, setorID)
	if err != nil {
		return 0, fmt.Errorf("resolve technicians of setor %d: %w", setorID, err)
	}
	if len(ids) == 0 {
		log.Debugw("setor has no technicians, nothing to notify", "setor_id", setorID)
		return 0, nil
	}
	sent := d.NotifyUsers(ctx, ids, tipo, titulo, mensagem, link)
	if sent < len(ids) {
		log.Warnw("sector fan-out partially failed", "setor_id", setorID, "sent", sent, "technicians", len(ids))
	}
	return sent, nil
}

// InvalidateSector 丢弃 setor 技术员列表的缓存，下一次扇出重新读取绑定
func (d *Dispatcher) InvalidateSector(ctx context.Context, setorID uint64) {
	d.sectors.Invalidate(ctx, setorID)
	log.Infow("sector technicians cache invalidated", "setor_id", setorID)
}

// MarkRead 幂等；未知 id 返回 core.ErrNotFound
func (d *Dispatcher) MarkRead(ctx context.Context, id uint64) error {
	n, err := d.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := d.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	d.syncUnread(ctx, n.UsuarioID)
	return nil
}

// MarkReadOwned 只允许标记自己的通知，他人的通知视为不存在
func (d *Dispatcher) MarkReadOwned(ctx context.Context, userID, id uint64) error {
	n, err := d.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UsuarioID != userID {
		return fmt.Errorf("notification %d: %w", id, core.ErrNotFound)
	}
	if err := d.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	d.syncUnread(ctx, userID)
	return nil
}

// MarkAllRead 返回本次置为已读的条数，没有未读时返回 0
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	count, err := d.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		d.syncUnread(ctx, userID)
	}
	return count, nil
}

// CountUnread 直接查库，不做缓存
func (d *Dispatcher) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	return d.repo.CountUnread(ctx, userID)
}

func (d *Dispatcher) List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	return d.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

// syncUnread 已读状态变化后把未读数同步给该用户的其他标签页
func (d *Dispatcher) syncUnread(ctx context.Context, userID uint64) {
	count, err := d.repo.CountUnread(ctx, userID)
	if err != nil {
		log.Warnw("failed to count unread notifications", "usuario_id", userID, "error", err)
		return
	}
	d.push(userID, Message{Type: TypeUnread, Data: UnreadData{Unread: count}})
}
