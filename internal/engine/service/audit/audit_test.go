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

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo/repotest"
	"github.com/go-arcade/helpdesk/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRecord_PersistsInCallOrder(t *testing.T) {
	store := repotest.NewAudit()
	l := NewLog(store, Options{}, nil)

	for i := int64(1); i <= 20; i++ {
		l.Record(context.Background(), Entry{
			UsuarioID:  ptr(uint64(7)),
			Acao:       "alterou",
			Modulo:     "tickets",
			RegistroID: ptr(i),
		})
	}
	l.Close()

	records := store.Records()
	require.Len(t, records, 20)
	for i, r := range records {
		assert.Equal(t, int64(i+1), *r.RegistroID)
		assert.False(t, r.CriadoEm.IsZero())
	}
}

func TestRecord_StoresFieldsAndOpaqueDetails(t *testing.T) {
	store := repotest.NewAudit()
	l := NewLog(store, Options{}, nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	l.Record(context.Background(), Entry{
		UsuarioID:  ptr(uint64(2)),
		Acao:       "excluiu",
		Modulo:     "usuarios",
		RegistroID: ptr(int64(42)),
		Detalhes:   Payload{"nome": "Carla", "campos": []string{"email", "role"}},
		IPAddress:  ptr("10.0.0.8"),
	})
	l.Record(context.Background(), Entry{Acao: "limpeza", Modulo: "sistema"})
	l.Close()

	records := store.Records()
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, uint64(2), *r.UsuarioID)
	assert.Equal(t, "excluiu", r.Acao)
	assert.Equal(t, "usuarios", r.Modulo)
	assert.Equal(t, int64(42), *r.RegistroID)
	assert.Equal(t, "10.0.0.8", *r.IPAddress)
	assert.Equal(t, fixed, r.CriadoEm)

	var detalhes map[string]any
	require.NoError(t, sonic.Unmarshal(r.Detalhes, &detalhes))
	assert.Equal(t, "Carla", detalhes["nome"])

	assert.Nil(t, records[1].UsuarioID)
	assert.Nil(t, records[1].Detalhes)
}

func TestRecord_WriteFailureIsSwallowed(t *testing.T) {
	store := repotest.NewAudit()
	store.SetErr(errors.New("disk full"))
	l := NewLog(store, Options{RetryBackoff: time.Millisecond}, nil)

	assert.NotPanics(t, func() {
		l.Record(context.Background(), Entry{Acao: "criou", Modulo: "tickets"})
	})
	l.Close()
	assert.Empty(t, store.Records())
}

func TestRecord_TransientFailureIsRetried(t *testing.T) {
	store := repotest.NewAudit()
	store.FailNext = 2
	l := NewLog(store, Options{RetryBackoff: time.Millisecond}, nil)

	l.Record(context.Background(), Entry{Acao: "criou", Modulo: "tickets"})
	l.Close()

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "criou", records[0].Acao)
}

func TestRecord_SlowSinkDoesNotBlockCaller(t *testing.T) {
	store := repotest.NewAudit()
	store.Block = make(chan struct{})
	l := NewLog(store, Options{QueueSize: 2, Policy: queue.PolicyDropOldest}, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			l.Record(context.Background(), Entry{Acao: "criou", Modulo: "tickets"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a slow audit sink")
	}
	assert.Greater(t, l.Stats().Dropped(), int64(0))

	close(store.Block)
	l.Close()
}

func TestQuery_PassesFilterThrough(t *testing.T) {
	store := repotest.NewAudit()
	l := NewLog(store, Options{}, nil)
	l.Record(context.Background(), Entry{UsuarioID: ptr(uint64(1)), Acao: "criou", Modulo: "tickets"})
	l.Record(context.Background(), Entry{UsuarioID: ptr(uint64(2)), Acao: "excluiu", Modulo: "usuarios"})
	l.Record(context.Background(), Entry{UsuarioID: ptr(uint64(1)), Acao: "excluiu", Modulo: "ativos"})
	l.Close()

	all, err := l.Query(context.Background(), model.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byUser, err := l.Query(context.Background(), model.AuditFilter{UsuarioID: ptr(uint64(1)), Acao: "excluiu"})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "ativos", byUser[0].Modulo)

	future := time.Now().Add(time.Hour)
	none, err := l.Query(context.Background(), model.AuditFilter{DataInicio: &future})
	require.NoError(t, err)
	assert.Empty(t, none)
}
