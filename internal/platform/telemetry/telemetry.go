// Package telemetry provides in-process operational counters and a
// Prometheus text exposition endpoint using only standard library
// constructs. It exists so that best-effort failure paths (most importantly
// audit log writes) are never silently invisible to operators.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
)

// Metrics is a registry of named monotonic counters.
type Metrics struct {
	mu       sync.RWMutex
	counters map[string]*counter
}

type counter struct {
	help  string
	value int64
}

func New() *Metrics {
	return &Metrics{counters: make(map[string]*counter)}
}

// Register declares a counter with help text. Registering the same name
// twice keeps the first help string.
func (m *Metrics) Register(name, help string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; !ok {
		m.counters[name] = &counter{help: help}
	}
}

// Inc increments a counter, registering it on first use.
func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

// Add increments a counter by delta.
func (m *Metrics) Add(name string, delta int64) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		c, ok = m.counters[name]
		if !ok {
			c = &counter{}
			m.counters[name] = c
		}
		m.mu.Unlock()
	}
	atomic.AddInt64(&c.value, delta)
}

// Value returns the current counter value, 0 for unknown counters.
func (m *Metrics) Value(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.counters[name]
	if !ok {
		return 0
	}
	return atomic.LoadInt64(&c.value)
}

// Exposition renders all counters in Prometheus text format, sorted by name
// so output is stable.
func (m *Metrics) Exposition() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.counters))
	for name := range m.counters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ""
	for _, name := range names {
		c := m.counters[name]
		if c.help != "" {
			out += fmt.Sprintf("# HELP %s %s\n", name, c.help)
		}
		out += fmt.Sprintf("# TYPE %s counter\n", name)
		out += fmt.Sprintf("%s %d\n", name, atomic.LoadInt64(&c.value))
	}
	return out
}

// Handler serves the exposition endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, m.Exposition())
	}
}

// Well-known counter names.
const (
	AuditLogFailures    = "audit_log_failures_total"
	AuthzDecisions      = "authz_decisions_total"
	AlertsPublished     = "alerts_published_total"
	ClassifierErrors    = "classifier_errors_total"
	TriageCasesAccepted = "triage_cases_accepted_total"
)

// RegisterWellKnown pre-registers the platform's standard counters so the
// exposition endpoint shows them at zero before first use.
func (m *Metrics) RegisterWellKnown() {
	m.Register(AuditLogFailures, "Access log appends that failed and were swallowed.")
	m.Register(AuthzDecisions, "Authorization gate decisions of any outcome.")
	m.Register(AlertsPublished, "Alerts published to the realtime bus.")
	m.Register(ClassifierErrors, "Triage classifier calls that failed.")
	m.Register(TriageCasesAccepted, "Ambulance case submissions persisted.")
}
