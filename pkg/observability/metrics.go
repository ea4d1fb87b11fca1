package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aretw0/storyweave/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storyweave"

// Metrics holds the Prometheus collectors fed by engine hooks.
type Metrics struct {
	NodeVisits        *prometheus.CounterVec
	ConditionOutcomes *prometheus.CounterVec
	VariableWrites    *prometheus.CounterVec
	Terminations      *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg. A nil reg uses
// a fresh private registry. Collectors already registered on reg are reused,
// so several engines can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of node visits by node kind.",
		}, []string{"kind"}),
		ConditionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "condition_evaluations_total",
			Help:      "Condition node evaluations by result.",
		}, []string{"result"}),
		VariableWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variable_writes_total",
			Help:      "Variable writes by variable-set nodes; fallback=true when the literal did not parse.",
		}, []string{"fallback"}),
		Terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_terminations_total",
			Help:      "Sessions reaching a terminal state by reason.",
		}, []string{"reason"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions held by a server that have not terminated.",
		}),
	}

	var err error
	if m.NodeVisits, err = register(reg, m.NodeVisits); err != nil {
		return nil, err
	}
	if m.ConditionOutcomes, err = register(reg, m.ConditionOutcomes); err != nil {
		return nil, err
	}
	if m.VariableWrites, err = register(reg, m.VariableWrites); err != nil {
		return nil, err
	}
	if m.Terminations, err = register(reg, m.Terminations); err != nil {
		return nil, err
	}
	if m.ActiveSessions, err = register(reg, m.ActiveSessions); err != nil {
		return nil, err
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeKind)).Inc()
		},
		OnConditionEvaluated: func(_ context.Context, e *domain.ConditionEvent) {
			m.ConditionOutcomes.WithLabelValues(strconv.FormatBool(e.Result)).Inc()
		},
		OnVariableSet: func(_ context.Context, e *domain.VariableEvent) {
			m.VariableWrites.WithLabelValues(strconv.FormatBool(e.Fallback)).Inc()
		},
		OnTerminate: func(_ context.Context, e *domain.TerminateEvent) {
			m.Terminations.WithLabelValues(string(e.Reason)).Inc()
		},
	}
}

// SessionOpened records a session created by a host.
func (m *Metrics) SessionOpened() { m.ActiveSessions.Inc() }

// SessionClosed records a session removed by a host.
func (m *Metrics) SessionClosed() { m.ActiveSessions.Dec() }

// Handler serves the registry the metrics were registered on. It falls back
// to the default gatherer when that registerer cannot gather.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
