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

package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-arcade/helpdesk/pkg/safe"
)

// Policy 队列满时的背压策略
type Policy string

const (
	// PolicyBlock 阻塞生产者，最多等待 BlockTimeout，超时则丢弃新元素
	PolicyBlock Policy = "block"
	// PolicyDropOldest 丢弃队首最旧的元素，为新元素腾出位置
	PolicyDropOldest Policy = "drop_oldest"
)

const (
	defaultCapacity     = 1024
	defaultBlockTimeout = 100 * time.Millisecond
)

// Options 队列配置
type Options struct {
	Name         string
	Capacity     int
	Policy       Policy
	BlockTimeout time.Duration
	// OnDrop 每丢弃一个元素调用一次，可为空
	OnDrop func()
}

// SetDefaults 填充默认值
func (o *Options) SetDefaults() {
	if o.Capacity <= 0 {
		o.Capacity = defaultCapacity
	}
	if o.Policy != PolicyDropOldest {
		o.Policy = PolicyBlock
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = defaultBlockTimeout
	}
}

// ParsePolicy 解析配置中的策略名称，未知值回退为 block
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyDropOldest {
		return PolicyDropOldest
	}
	return PolicyBlock
}

// Queue is a bounded FIFO drained by a single background worker, so items
// are handled strictly in push order.
type Queue[T any] struct {
	opts    Options
	items   chan T
	handler func(T)

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	dropped atomic.Int64
}

// New creates the queue and starts its worker.
func New[T any](opts Options, handler func(T)) *Queue[T] {
	opts.SetDefaults()
	q := &Queue[T]{
		opts:    opts,
		items:   make(chan T, opts.Capacity),
		handler: handler,
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue[T]) run() {
	defer close(q.done)
	for item := range q.items {
		safe.Do(func() {
			q.handler(item)
		})
	}
}

// Push enqueues item according to the backpressure policy. It returns false
// when the item was dropped.
func (q *Queue[T]) Push(item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop()
		return false
	}

	if q.opts.Policy == PolicyDropOldest {
		for {
			select {
			case q.items <- item:
				return true
			default:
			}
			select {
			case <-q.items:
				q.drop()
			default:
			}
		}
	}

	select {
	case q.items <- item:
		return true
	default:
	}

	timer := time.NewTimer(q.opts.BlockTimeout)
	defer timer.Stop()
	select {
	case q.items <- item:
		return true
	case <-timer.C:
		q.drop()
		return false
	}
}

func (q *Queue[T]) drop() {
	q.dropped.Add(1)
	if q.opts.OnDrop != nil {
		q.opts.OnDrop()
	}
}

// Close stops accepting items, waits until everything already queued has
// been handled, and returns. Safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()
	<-q.done
}

// Len 当前排队数量
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Dropped 累计丢弃数量
func (q *Queue[T]) Dropped() int64 {
	return q.dropped.Load()
}

// Name 队列名称
func (q *Queue[T]) Name() string {
	return q.opts.Name
}
