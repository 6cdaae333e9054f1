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
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/go-arcade/helpdesk/pkg/queue"
	"github.com/go-arcade/helpdesk/pkg/retry"
	"github.com/go-arcade/helpdesk/pkg/safe"
	"gorm.io/datatypes"
)

// Payload 不解析的键值负载
type Payload map[string]any

// Entry 一次状态变更的审计信息，UsuarioID 为 nil 表示系统操作
type Entry struct {
	UsuarioID  *uint64
	Acao       string
	Modulo     string
	RegistroID *int64
	Detalhes   Payload
	IPAddress  *string
}

type Options struct {
	QueueSize    int
	Policy       queue.Policy
	BlockTimeout time.Duration
	WriteTimeout time.Duration
	// 单条记录的写入尝试次数，包含第一次
	WriteAttempts int
	RetryBackoff  time.Duration
}

func (o *Options) SetDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 4096
	}
	if o.Policy == "" {
		o.Policy = queue.PolicyBlock
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = 50 * time.Millisecond
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.WriteAttempts <= 0 {
		o.WriteAttempts = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 100 * time.Millisecond
	}
}

// Log 只追加的审计日志。写入经由单 worker 队列异步完成，
// 同一进程内按调用顺序落库；任何失败只记录日志
type Log struct {
	repo    repo.IAuditRepository
	opts    Options
	queue   *queue.Queue[*model.AuditRecord]
	metrics *metrics.AccessMetrics
	now     func() time.Time
}

func NewLog(r repo.IAuditRepository, opts Options, m *metrics.AccessMetrics) *Log {
	opts.SetDefaults()
	l := &Log{
		repo:    r,
		opts:    opts,
		metrics: m,
		now:     time.Now,
	}
	l.queue = queue.New(queue.Options{
		Name:         "audit",
		Capacity:     opts.QueueSize,
		Policy:       opts.Policy,
		BlockTimeout: opts.BlockTimeout,
		OnDrop: func() {
			m.Audit("dropped")
			log.Warnw("audit queue full, record dropped", "error", core.ErrAuditWriteFailed)
		},
	}, l.write)
	return l
}

// Record 永不失败，也不等待落库
func (l *Log) Record(_ context.Context, e Entry) {
	rec := &model.AuditRecord{
		UsuarioID:  e.UsuarioID,
		Acao:       e.Acao,
		Modulo:     e.Modulo,
		RegistroID: e.RegistroID,
		IPAddress:  e.IPAddress,
		CriadoEm:   l.now(),
	}
	if e.Detalhes != nil {
		b, err := sonic.Marshal(e.Detalhes)
		if err != nil {
			log.Warnw("failed to encode audit detalhes, storing without them", "acao", e.Acao, "modulo", e.Modulo, "error", err)
		} else {
			rec.Detalhes = datatypes.JSON(b)
		}
	}
	l.queue.Push(rec)
}

func (l *Log) write(rec *model.AuditRecord) {
	ok := safe.BestEffort("audit.write", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), l.opts.WriteTimeout)
		defer cancel()
		err := retry.Do(ctx, func(ctx context.Context) error {
			return l.repo.Insert(ctx, rec)
		},
			retry.WithMaxAttempts(l.opts.WriteAttempts),
			retry.WithBackoff(retry.Exponential(l.opts.RetryBackoff, time.Second)),
			retry.WithJitter(retry.FullJitter),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrAuditWriteFailed, err)
		}
		return nil
	}, "acao", rec.Acao, "modulo", rec.Modulo, "usuario_id", rec.UsuarioID, "registro_id", rec.RegistroID)

	if ok {
		l.metrics.Audit("written")
	} else {
		l.metrics.Audit("failed")
	}
}

// Query 条件原样传给仓储，分页由调用方负责
func (l *Log) Query(ctx context.Context, filter model.AuditFilter) ([]model.AuditRecord, error) {
	return l.repo.Find(ctx, filter)
}

// Stats 审计队列的只读视图
func (l *Log) Stats() metrics.QueueStats {
	return l.queue
}

// Close 等待已排队的记录写完
func (l *Log) Close() {
	l.queue.Close()
}
