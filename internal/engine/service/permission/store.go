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

package permission

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"golang.org/x/sync/singleflight"
)

const (
	shardCount = 64
	// 冷加载由多个请求共享，不跟随任何单个请求的取消
	loadTimeout = 5 * time.Second
)

type cell struct {
	module model.Module
	action model.Action
}

// Overrides 某个用户覆盖项的不可变快照
type Overrides struct {
	cells map[cell]bool
}

var emptyOverrides = &Overrides{cells: map[cell]bool{}}

// Lookup 返回覆盖值以及是否存在覆盖
func (o *Overrides) Lookup(module model.Module, action model.Action) (value, ok bool) {
	value, ok = o.cells[cell{module, action}]
	return value, ok
}

func (o *Overrides) Len() int {
	return len(o.cells)
}

func (o *Overrides) with(changes map[cell]*bool) *Overrides {
	next := make(map[cell]bool, len(o.cells)+len(changes))
	for k, v := range o.cells {
		next[k] = v
	}
	for k, v := range changes {
		if v == nil {
			delete(next, k)
			continue
		}
		next[k] = *v
	}
	return &Overrides{cells: next}
}

type shard struct {
	mu    sync.RWMutex
	users map[uint64]*Overrides
}

// Store 按用户缓存覆盖项。
// 读：分片读锁下取快照指针，快照本身不可变。
// 写：同一用户的写入经由分片写者锁串行，先落库再整体替换快照
type Store struct {
	repo    repo.IPermissionRepository
	shards  [shardCount]shard
	writers [shardCount]sync.Mutex
	group   singleflight.Group
}

func NewStore(r repo.IPermissionRepository) *Store {
	s := &Store{repo: r}
	for i := range s.shards {
		s.shards[i].users = make(map[uint64]*Overrides)
	}
	return s
}

func (s *Store) shard(userID uint64) *shard {
	return &s.shards[userID%shardCount]
}

func (s *Store) writer(userID uint64) *sync.Mutex {
	return &s.writers[userID%shardCount]
}

func (s *Store) cached(userID uint64) (*Overrides, bool) {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	o, ok := sh.users[userID]
	return o, ok
}

// Get 返回用户当前的覆盖快照，首次访问从仓储加载
func (s *Store) Get(ctx context.Context, userID uint64) (*Overrides, error) {
	if o, ok := s.cached(userID); ok {
		return o, nil
	}

	v, err, _ := s.group.Do(strconv.FormatUint(userID, 10), func() (any, error) {
		// 持写者锁加载，避免与并发写入交错后发布旧数据
		w := s.writer(userID)
		w.Lock()
		defer w.Unlock()

		if o, ok := s.cached(userID); ok {
			return o, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		rows, err := s.repo.ListByUser(lctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load overrides of user %d: %w", userID, err)
		}
		o := emptyOverrides
		if len(rows) > 0 {
			cells := make(map[cell]bool, len(rows))
			for _, r := range rows {
				cells[cell{r.Modulo, r.Acao}] = r.Permitido
			}
			o = &Overrides{cells: cells}
		}

		sh := s.shard(userID)
		sh.mu.Lock()
		sh.users[userID] = o
		sh.mu.Unlock()
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Overrides), nil
}

// apply 落库成功后一次性替换快照；快照未加载时不做处理，下次 Get 从库中读取
func (s *Store) apply(userID uint64, persist func() error, changes map[cell]*bool) error {
	w := s.writer(userID)
	w.Lock()
	defer w.Unlock()

	if err := persist(); err != nil {
		return err
	}

	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.users[userID]; ok {
		sh.users[userID] = cur.with(changes)
	}
	return nil
}

// Set 写入同一用户的一组覆盖项，对读者整体可见
func (s *Store) Set(ctx context.Context, userID uint64, values map[cell]bool) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]model.PermissionOverride, 0, len(values))
	changes := make(map[cell]*bool, len(values))
	for c, v := range values {
		v := v
		rows = append(rows, model.PermissionOverride{UsuarioID: userID, Modulo: c.module, Acao: c.action, Permitido: v})
		changes[c] = &v
	}
	return s.apply(userID, func() error {
		return s.repo.Upsert(ctx, rows...)
	}, changes)
}

// Reset 删除单条覆盖项
func (s *Store) Reset(ctx context.Context, userID uint64, module model.Module, action model.Action) error {
	return s.apply(userID, func() error {
		return s.repo.Delete(ctx, userID, module, action)
	}, map[cell]*bool{{module, action}: nil})
}

// Forget 删除用户全部覆盖项并丢弃快照
func (s *Store) Forget(ctx context.Context, userID uint64) error {
	w := s.writer(userID)
	w.Lock()
	defer w.Unlock()

	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	s.drop(userID)
	return nil
}

// Evict 丢弃内存快照，下次 Get 重新从库中读取；用于覆盖项被进程外修改之后
func (s *Store) Evict(userID uint64) {
	w := s.writer(userID)
	w.Lock()
	defer w.Unlock()
	s.drop(userID)
}

func (s *Store) drop(userID uint64) {
	sh := s.shard(userID)
	sh.mu.Lock()
	delete(sh.users, userID)
	sh.mu.Unlock()
}
