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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo/repotest"
	"github.com/go-arcade/helpdesk/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPusher struct {
	mu     sync.Mutex
	online map[uint64]bool
	msgs   map[uint64][]Message
	fail   bool
}

func newPusher(online ...uint64) *recordingPusher {
	p := &recordingPusher{online: map[uint64]bool{}, msgs: map[uint64][]Message{}}
	for _, u := range online {
		p.online[u] = true
	}
	return p
}

func (p *recordingPusher) SendToUser(userID uint64, v any) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[userID] {
		return 0, 0
	}
	if p.fail {
		return 0, 1
	}
	p.msgs[userID] = append(p.msgs[userID], v.(Message))
	return 1, 0
}

func (p *recordingPusher) messages(userID uint64) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.msgs[userID]...)
}

func unreadOf(t *testing.T, repo *repotest.Notifications, userID uint64) int64 {
	t.Helper()
	n, err := repo.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	return n
}

func TestNotifyUser_StoresAndPushes(t *testing.T) {
	store := repotest.NewNotifications()
	pusher := newPusher(1)
	d := NewDispatcher(store, repotest.NewSectors(), pusher, nil)
	link := "/tickets/9"

	n, err := d.NotifyUser(context.Background(), 1, model.NotificationInfo, "Novo ticket", "Ticket #9 aberto", &link)
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.False(t, n.Lida)
	assert.Equal(t, model.NotificationInfo, n.Tipo)

	msgs := pusher.messages(1)
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeNotification, msgs[0].Type)
	assert.Equal(t, n.ID, msgs[0].Data.(*model.Notification).ID)
	assert.Equal(t, int64(1), unreadOf(t, store, 1))
}

func TestNotifyUser_OfflineStillStored(t *testing.T) {
	store := repotest.NewNotifications()
	pusher := newPusher()
	d := NewDispatcher(store, repotest.NewSectors(), pusher, nil)

	_, err := d.NotifyUser(context.Background(), 5, "desconhecido", "Aviso", "", nil)
	require.NoError(t, err)
	assert.Empty(t, pusher.messages(5))

	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, model.NotificationOther, all[0].Tipo)
}

func TestNotifyUser_PushFailureNotSurfaced(t *testing.T) {
	store := repotest.NewNotifications()
	pusher := newPusher(1)
	pusher.fail = true
	d := NewDispatcher(store, repotest.NewSectors(), pusher, nil)

	n, err := d.NotifyUser(context.Background(), 1, model.NotificationErro, "Falha", "", nil)
	require.NoError(t, err)
	assert.NotNil(t, n)
	assert.Equal(t, int64(1), unreadOf(t, store, 1))
}

func TestNotifyUser_InvalidArguments(t *testing.T) {
	d := NewDispatcher(repotest.NewNotifications(), repotest.NewSectors(), nil, nil)
	_, err := d.NotifyUser(context.Background(), 0, model.NotificationInfo, "x", "", nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	_, err = d.NotifyUser(context.Background(), 1, model.NotificationInfo, "  ", "", nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestNotifyUser_PerUserCreationOrder(t *testing.T) {
	store := repotest.NewNotifications()
	pusher := newPusher(1)
	d := NewDispatcher(store, repotest.NewSectors(), pusher, nil)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.NotifyUser(context.Background(), 1, model.NotificationInfo, "t", "", nil)
		}()
	}
	wg.Wait()

	msgs := pusher.messages(1)
	require.Len(t, msgs, 40)
	for i := 1; i < len(msgs); i++ {
		prev := msgs[i-1].Data.(*model.Notification).ID
		cur := msgs[i].Data.(*model.Notification).ID
		assert.Less(t, prev, cur)
	}
}

func TestNotifySectorTechnicians_Completeness(t *testing.T) {
	store := repotest.NewNotifications()
	sectors := repotest.NewSectors()
	sectors.Bind(10, 101, 102, 103)
	sectors.Bind(20, 104)
	d := NewDispatcher(store, sectors, newPusher(), nil)

	sent, err := d.NotifySectorTechnicians(context.Background(), 10, model.NotificationInfo, "Novo ticket", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)

	for _, u := range []uint64{101, 102, 103} {
		assert.Equal(t, int64(1), unreadOf(t, store, u))
	}
	assert.Zero(t, unreadOf(t, store, 104))
}

func TestNotifySectorTechnicians_PartialFailureContinues(t *testing.T) {
	store := repotest.NewNotifications()
	store.Fail(102, errors.New("deadlock"))
	sectors := repotest.NewSectors()
	sectors.Bind(10, 101, 102, 103)
	d := NewDispatcher(store, sectors, nil, nil)

	sent, err := d.NotifySectorTechnicians(context.Background(), 10, model.NotificationInfo, "Novo ticket", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int64(1), unreadOf(t, store, 101))
	assert.Equal(t, int64(1), unreadOf(t, store, 103))
}

func TestNotifySectorTechnicians_EmptySector(t *testing.T) {
	d := NewDispatcher(repotest.NewNotifications(), repotest.NewSectors(), nil, nil)
	sent, err := d.NotifySectorTechnicians(context.Background(), 99, model.NotificationInfo, "x", "", nil)
	assert.NoError(t, err)
	assert.Zero(t, sent)
}

func TestReadState(t *testing.T) {
	store := repotest.NewNotifications()
	pusher := newPusher(1)
	d := NewDispatcher(store, repotest.NewSectors(), pusher, nil)
	ctx := context.Background()

	a, err := d.NotifyUser(ctx, 1, model.NotificationInfo, "a", "", nil)
	require.NoError(t, err)
	_, err = d.NotifyUser(ctx, 1, model.NotificationInfo, "b", "", nil)
	require.NoError(t, err)
	other, err := d.NotifyUser(ctx, 2, model.NotificationInfo, "c", "", nil)
	require.NoError(t, err)

	require.NoError(t, d.MarkRead(ctx, a.ID))
	require.NoError(t, d.MarkRead(ctx, a.ID))
	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Lida)

	assert.ErrorIs(t, d.MarkRead(ctx, 999), core.ErrNotFound)
	assert.ErrorIs(t, d.MarkReadOwned(ctx, 1, other.ID), core.ErrNotFound)

	count, err := d.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	unread, err := d.CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, unread)

	count, err = d.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)

	// 其他标签页收到未读数同步
	msgs := pusher.messages(1)
	last := msgs[len(msgs)-1]
	assert.Equal(t, TypeUnread, last.Type)
	assert.Equal(t, UnreadData{Unread: 0}, last.Data)
}

type fakeConn struct {
	userID uint64
	mu     sync.Mutex
	sent   []Message
}

func (c *fakeConn) ID() string         { return "ws_test" }
func (c *fakeConn) UserID() uint64     { return c.userID }
func (c *fakeConn) Close() error       { return nil }
func (c *fakeConn) RemoteAddr() string { return "127.0.0.1:0" }
func (c *fakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v.(Message))
	return nil
}

func (c *fakeConn) last() Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[len(c.sent)-1]
}

func TestSessionHandler_SnapshotOnConnect(t *testing.T) {
	store := repotest.NewNotifications()
	d := NewDispatcher(store, repotest.NewSectors(), nil, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := d.NotifyUser(ctx, 1, model.NotificationInfo, "n", "", nil)
		require.NoError(t, err)
	}
	first := store.All()[0]
	require.NoError(t, store.MarkRead(ctx, first.ID))

	h := NewSessionHandler(d)
	conn := &fakeConn{userID: 1}
	require.NoError(t, h.OnConnect(conn))

	msg := conn.last()
	assert.Equal(t, TypeSnapshot, msg.Type)
	snap := msg.Data.(SnapshotData)
	assert.Equal(t, int64(2), snap.Unread)
	assert.Len(t, snap.Items, 2)
}

func TestSessionHandler_ClientActions(t *testing.T) {
	store := repotest.NewNotifications()
	d := NewDispatcher(store, repotest.NewSectors(), nil, nil)
	ctx := context.Background()
	n, err := d.NotifyUser(ctx, 1, model.NotificationInfo, "n", "", nil)
	require.NoError(t, err)
	_, err = d.NotifyUser(ctx, 1, model.NotificationInfo, "m", "", nil)
	require.NoError(t, err)

	h := NewSessionHandler(d)
	conn := &fakeConn{userID: 1}

	frame, _ := sonic.Marshal(ClientMessage{Action: ActionCount})
	require.NoError(t, h.OnMessage(conn, ws.TextMessage, frame))
	assert.Equal(t, UnreadData{Unread: 2}, conn.last().Data)

	frame, _ = sonic.Marshal(ClientMessage{Action: ActionMarkRead, ID: n.ID})
	require.NoError(t, h.OnMessage(conn, ws.TextMessage, frame))
	assert.Equal(t, int64(1), unreadOf(t, store, 1))

	frame, _ = sonic.Marshal(ClientMessage{Action: ActionMarkAllRead})
	require.NoError(t, h.OnMessage(conn, ws.TextMessage, frame))
	assert.Zero(t, unreadOf(t, store, 1))

	frame, _ = sonic.Marshal(ClientMessage{Action: ActionMarkAllRead})
	require.NoError(t, h.OnMessage(conn, ws.TextMessage, frame))
	assert.Equal(t, UnreadData{Unread: 0}, conn.last().Data)

	err = h.OnMessage(conn, ws.TextMessage, []byte(`{"action":"delete_all"}`))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	err = h.OnMessage(conn, ws.TextMessage, []byte(`not json`))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	h.OnError(conn, err)
	assert.Equal(t, TypeError, conn.last().Type)
	assert.Equal(t, ErrorData{Message: "invalid request"}, conn.last().Data)
}

// stallingPusher 对 slow 用户的推送一直阻塞到 release 关闭
type stallingPusher struct {
	slow    uint64
	entered chan struct{}
	release chan struct{}
}

func (p *stallingPusher) SendToUser(userID uint64, _ any) (int, int) {
	if userID == p.slow {
		p.entered <- struct{}{}
		<-p.release
	}
	return 1, 0
}

func TestNotifyUser_SlowSessionOnlyDelaysItsOwnUser(t *testing.T) {
	pusher := &stallingPusher{slow: 1, entered: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(repotest.NewNotifications(), repotest.NewSectors(), pusher, nil)
	ctx := context.Background()

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_, err := d.NotifyUser(ctx, 1, model.NotificationInfo, "lento", "", nil)
		assert.NoError(t, err)
	}()
	<-pusher.entered

	// 65 与 1 曾落在同一个锁分片上
	fastDone := make(chan struct{})
	go func() {
		defer close(fastDone)
		_, err := d.NotifyUser(ctx, 65, model.NotificationInfo, "rapido", "", nil)
		assert.NoError(t, err)
	}()
	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("notification for another user waited on a stalled session")
	}

	close(pusher.release)
	<-slowDone
	assert.Zero(t, d.locks.held())
}
