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

package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-arcade/helpdesk/internal/engine/core"
	"github.com/go-arcade/helpdesk/internal/engine/model"
	"github.com/go-arcade/helpdesk/internal/engine/repo"
	"github.com/go-arcade/helpdesk/internal/engine/service/audit"
	"github.com/go-arcade/helpdesk/internal/engine/service/notification"
	"github.com/go-arcade/helpdesk/internal/engine/service/permission"
	"github.com/go-arcade/helpdesk/pkg/log"
	"github.com/go-arcade/helpdesk/pkg/metrics"
	"github.com/go-arcade/helpdesk/pkg/queue"
	"github.com/go-arcade/helpdesk/pkg/safe"
)

// Event 一次已完成的业务操作
type Event struct {
	UsuarioID  *uint64 // 发起人，nil 表示系统
	Acao       string
	Modulo     string
	RegistroID *int64
	Detalhes   audit.Payload
	IPAddress  *string

	// 接收方解析用
	AssigneeID *uint64
	SetorID    *uint64
	Recipients []uint64

	// 非空时覆盖规则中的模板
	Tipo     model.NotificationType
	Titulo   string
	Mensagem string
	Link     *string
}

type Options struct {
	QueueSize     int
	Policy        queue.Policy
	BlockTimeout  time.Duration
	NotifyTimeout time.Duration
}

func (o *Options) SetDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Policy == "" {
		o.Policy = queue.PolicyBlock
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = 50 * time.Millisecond
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 10 * time.Second
	}
}

// Facade 请求处理方调用的唯一入口
type Facade struct {
	resolver   *permission.Resolver
	audit      *audit.Log
	dispatcher *notification.Dispatcher
	users      repo.IUserRepository
	rules      *RuleTable
	opts       Options
	jobs       *queue.Queue[Event]
}

func NewFacade(
	resolver *permission.Resolver,
	auditLog *audit.Log,
	dispatcher *notification.Dispatcher,
	users repo.IUserRepository,
	rules *RuleTable,
	opts Options,
) *Facade {
	opts.SetDefaults()
	f := &Facade{
		resolver:   resolver,
		audit:      auditLog,
		dispatcher: dispatcher,
		users:      users,
		rules:      rules,
		opts:       opts,
	}
	f.jobs = queue.New(queue.Options{
		Name:         "notify",
		Capacity:     opts.QueueSize,
		Policy:       opts.Policy,
		BlockTimeout: opts.BlockTimeout,
		OnDrop: func() {
			log.Warnw("notify queue full, event dropped", "error", core.ErrDeliveryFailed)
		},
	}, f.notify)
	return f
}

// Authorize 委托给 PermissionResolver
func (f *Facade) Authorize(ctx context.Context, p model.Principal, module model.Module, action model.Action) bool {
	return f.resolver.Authorize(ctx, p, module, action)
}

// Require 未授权时返回 core.ErrDenied，错误信息不包含原因
func (f *Facade) Require(ctx context.Context, p model.Principal, module model.Module, action model.Action) error {
	if !f.Authorize(ctx, p, module, action) {
		return core.ErrDenied
	}
	return nil
}

// RecordAndNotify 写审计并按规则异步通知；不会失败，也不等待任何 I/O
func (f *Facade) RecordAndNotify(ctx context.Context, e Event) {
	f.audit.Record(ctx, audit.Entry{
		UsuarioID:  e.UsuarioID,
		Acao:       e.Acao,
		Modulo:     e.Modulo,
		RegistroID: e.RegistroID,
		Detalhes:   e.Detalhes,
		IPAddress:  e.IPAddress,
	})

	if len(f.rules.Lookup(e.Modulo, e.Acao)) == 0 && len(e.Recipients) == 0 {
		return
	}
	f.jobs.Push(e)
}

func (f *Facade) notify(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), f.opts.NotifyTimeout)
	defer cancel()

	rules := f.rules.Lookup(e.Modulo, e.Acao)
	if len(rules) == 0 {
		// 没有规则时，事件自带的接收人使用通用文案
		rules = []Rule{{Event: eventKey(e.Modulo, e.Acao), Target: TargetUsers, Tipo: model.NotificationInfo, Titulo: "{modulo}: {acao}", Link: recordLink}}
	}

	for _, rule := range rules {
		rule := rule
		safe.BestEffort("access.notify", func() error {
			return f.apply(ctx, rule, e)
		}, "event", rule.Event, "target", rule.Target, "registro_id", e.RegistroID)
	}
}

func (f *Facade) apply(ctx context.Context, rule Rule, e Event) error {
	tipo := rule.Tipo
	if e.Tipo != "" {
		tipo = e.Tipo
	}
	titulo := render(rule.Titulo, e)
	if e.Titulo != "" {
		titulo = e.Titulo
	}
	mensagem := render(rule.Mensagem, e)
	if e.Mensagem != "" {
		mensagem = e.Mensagem
	}
	link := e.Link
	if link == nil && rule.Link != "" {
		l := render(rule.Link, e)
		if e.RegistroID == nil && strings.Contains(rule.Link, "{registro_id}") {
			l = "/" + e.Modulo
		}
		link = &l
	}

	if rule.Target == TargetSector {
		if e.SetorID == nil {
			return fmt.Errorf("event has no setor_id: %w", core.ErrInvalidArgument)
		}
		_, err := f.dispatcher.NotifySectorTechnicians(ctx, *e.SetorID, tipo, titulo, mensagem, link)
		return err
	}

	recipients, err := f.recipients(ctx, rule, e)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}
	sent := f.dispatcher.NotifyUsers(ctx, recipients, tipo, titulo, mensagem, link)
	if sent < len(recipients) {
		return fmt.Errorf("%w: %d of %d recipients", core.ErrDeliveryFailed, len(recipients)-sent, len(recipients))
	}
	return nil
}

func (f *Facade) recipients(ctx context.Context, rule Rule, e Event) ([]uint64, error) {
	var ids []uint64
	switch rule.Target {
	case TargetAssignee:
		if e.AssigneeID != nil {
			ids = []uint64{*e.AssigneeID}
		}
	case TargetRole:
		byRole, err := f.users.UserIDsByRole(ctx, rule.Role)
		if err != nil {
			return nil, fmt.Errorf("resolve role %s: %w", rule.Role, err)
		}
		ids = byRole
	case TargetUsers:
		ids = append(append(ids, rule.Users...), e.Recipients...)
	}

	// 去重保持顺序，sent 和接收人数按同一口径比较
	seen := make(map[uint64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !rule.IncludeActor && e.UsuarioID != nil && id == *e.UsuarioID {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Close 等待已排队的通知处理完
func (f *Facade) Close() {
	f.jobs.Close()
}

// Stats 通知队列的只读视图
func (f *Facade) Stats() metrics.QueueStats {
	return f.jobs
}
