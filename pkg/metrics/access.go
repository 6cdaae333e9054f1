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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "helpdesk"

// AccessMetrics 权限、审计、通知相关指标。nil 接收者上的调用均为空操作
type AccessMetrics struct {
	authorize     *prometheus.CounterVec
	audit         *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sessions      prometheus.Gauge
}

func NewAccessMetrics() *AccessMetrics {
	return &AccessMetrics{
		authorize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorize_total",
			Help:      "Authorization decisions by module, action and result",
		}, []string{"module", "action", "result"}),
		audit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_total",
			Help:      "Audit records by outcome (written, failed, dropped)",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications by delivery (stored, live, failed)",
		}, []string{"delivery"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Currently connected live notification sessions",
		}),
	}
}

// Register 注册到给定 registry
func (m *AccessMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.authorize, m.audit, m.notifications, m.sessions} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *AccessMetrics) Authorize(module, action string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.authorize.WithLabelValues(module, action, result).Inc()
}

func (m *AccessMetrics) Audit(result string) {
	if m == nil {
		return
	}
	m.audit.WithLabelValues(result).Inc()
}

func (m *AccessMetrics) Notification(delivery string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(delivery).Inc()
}

func (m *AccessMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *AccessMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// QueueStats 队列的只读视图
type QueueStats interface {
	Name() string
	Len() int
	Dropped() int64
}

// RegisterQueue 以 GaugeFunc/CounterFunc 的形式导出队列深度与丢弃数
func RegisterQueue(reg prometheus.Registerer, q QueueStats) error {
	labels := prometheus.Labels{"queue": q.Name()}
	depth := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "queue_depth",
		Help:        "Items waiting in a bounded work queue",
		ConstLabels: labels,
	}, func() float64 { return float64(q.Len()) })
	dropped := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "queue_dropped_total",
		Help:        "Items dropped or rejected by a bounded work queue",
		ConstLabels: labels,
	}, func() float64 { return float64(q.Dropped()) })
	if err := reg.Register(depth); err != nil {
		return err
	}
	return reg.Register(dropped)
}
