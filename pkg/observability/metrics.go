package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Transition outcomes.
const (
	TransitionApplied  = "applied"
	TransitionRejected = "rejected"
	TransitionFailed   = "failed"
)

// Initialization outcomes.
const (
	InitStamped = "stamped"
	InitPresent = "present"
	InitFailed  = "failed"
)

// Metrics holds the engine's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	Initializations *prometheus.CounterVec
	Definitions     *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hashfsm_transitions_total",
				Help: "Transition requests by definition, event and outcome",
			},
			[]string{"fsm", "event", "result"},
		),
		Initializations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hashfsm_initializations_total",
				Help: "Initialization hook outcomes for governed entities",
			},
			[]string{"fsm", "result"},
		),
		Definitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hashfsm_definition_changes_total",
				Help: "Definition creations and deletions",
			},
			[]string{"operation"},
		),
	}
}

// Register registers every collector. When an identical collector is already
// registered, the existing one is adopted.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []**prometheus.CounterVec{&m.Transitions, &m.Initializations, &m.Definitions} {
		if err := reg.Register(*c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return err
			}
			*c = existing
		}
	}
	return nil
}

// ObserveTransition counts one transition request.
func (m *Metrics) ObserveTransition(fsm, event, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(fsm, event, result).Inc()
}

// ObserveInitialization counts one hook decision on a governed entity.
func (m *Metrics) ObserveInitialization(fsm, result string) {
	if m == nil {
		return
	}
	m.Initializations.WithLabelValues(fsm, result).Inc()
}

// ObserveDefinition counts a definition change ("create" or "delete").
func (m *Metrics) ObserveDefinition(operation string) {
	if m == nil {
		return
	}
	m.Definitions.WithLabelValues(operation).Inc()
}
