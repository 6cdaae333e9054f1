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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	items []int
}

func (r *recorder) add(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.items...)
}

func TestQueue_FIFO(t *testing.T) {
	rec := &recorder{}
	q := New(Options{Name: "fifo", Capacity: 16}, rec.add)

	for i := 0; i < 100; i++ {
		require.True(t, q.Push(i))
	}
	q.Close()

	got := rec.snapshot()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, int64(0), q.Dropped())
}

func TestQueue_DropOldest(t *testing.T) {
	rec := &recorder{}
	started := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once

	drops := 0
	q := New(Options{Capacity: 2, Policy: PolicyDropOldest, OnDrop: func() { drops++ }}, func(v int) {
		once.Do(func() {
			close(started)
			<-gate
		})
		rec.add(v)
	})

	require.True(t, q.Push(1))
	<-started // worker holds item 1

	require.True(t, q.Push(2))
	require.True(t, q.Push(3))
	require.True(t, q.Push(4)) // evicts 2

	close(gate)
	q.Close()

	assert.Equal(t, []int{1, 3, 4}, rec.snapshot())
	assert.Equal(t, int64(1), q.Dropped())
	assert.Equal(t, 1, drops)
}

func TestQueue_BlockTimeout(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once

	q := New(Options{Capacity: 1, Policy: PolicyBlock, BlockTimeout: 20 * time.Millisecond}, func(v int) {
		once.Do(func() {
			close(started)
			<-gate
		})
	})

	require.True(t, q.Push(1))
	<-started
	require.True(t, q.Push(2))

	begin := time.Now()
	assert.False(t, q.Push(3))
	assert.GreaterOrEqual(t, time.Since(begin), 20*time.Millisecond)
	assert.Equal(t, int64(1), q.Dropped())

	close(gate)
	q.Close()
}

func TestQueue_PushAfterClose(t *testing.T) {
	q := New(Options{}, func(int) {})
	q.Close()
	q.Close()

	assert.False(t, q.Push(1))
	assert.Equal(t, int64(1), q.Dropped())
}

func TestQueue_HandlerPanicKeepsWorker(t *testing.T) {
	rec := &recorder{}
	q := New(Options{}, func(v int) {
		if v == 1 {
			panic("bad item")
		}
		rec.add(v)
	})

	q.Push(1)
	q.Push(2)
	q.Close()

	assert.Equal(t, []int{2}, rec.snapshot())
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyDropOldest, ParsePolicy("drop_oldest"))
	assert.Equal(t, PolicyBlock, ParsePolicy("block"))
	assert.Equal(t, PolicyBlock, ParsePolicy("whatever"))
}
