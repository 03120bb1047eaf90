package telemetry

import (
	"strings"
	"sync"
	"testing"
)

func TestIncAndValue(t *testing.T) {
	m := New()
	m.Inc(AuditLogFailures)
	m.Add(AuditLogFailures, 2)

	if got := m.Value(AuditLogFailures); got != 3 {
		t.Errorf("Value = %d, want 3", got)
	}
	if got := m.Value("unknown_counter"); got != 0 {
		t.Errorf("Value(unknown) = %d, want 0", got)
	}
}

func TestExpositionFormat(t *testing.T) {
	m := New()
	m.RegisterWellKnown()
	m.Inc(AlertsPublished)

	out := m.Exposition()
	if !strings.Contains(out, "# TYPE alerts_published_total counter") {
		t.Errorf("missing TYPE line:\n%s", out)
	}
	if !strings.Contains(out, "alerts_published_total 1") {
		t.Errorf("missing counter value:\n%s", out)
	}
	if !strings.Contains(out, "audit_log_failures_total 0") {
		t.Errorf("pre-registered counter should render at zero:\n%s", out)
	}
}

func TestConcurrentInc(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Inc(AuthzDecisions)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(AuthzDecisions); got != 5000 {
		t.Errorf("Value = %d, want 5000", got)
	}
}
