package observ_test

import (
	"strings"
	"testing"

	"biflink/internal/observ"
)

func TestTimerReport(t *testing.T) {
	tm := observ.NewTimer()
	a := tm.Begin("load")
	tm.End(a, "main.ll")
	b := tm.Begin("link")
	tm.End(b, "")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(report.Phases))
	}
	if report.Phases[0].Name != "load" || report.Phases[0].Note != "main.ll" {
		t.Errorf("phase 0 = %+v", report.Phases[0])
	}
	if report.Phases[1].Name != "link" {
		t.Errorf("phase 1 = %+v", report.Phases[1])
	}

	tm.End(99, "out of range is ignored")

	summary := tm.Summary()
	for _, part := range []string{"load", "link", "total", "main.ll"} {
		if !strings.Contains(summary, part) {
			t.Errorf("summary missing %q:\n%s", part, summary)
		}
	}
}

func TestTimerEmpty(t *testing.T) {
	tm := observ.NewTimer()
	report := tm.Report()
	if len(report.Phases) != 0 || report.TotalMS != 0 {
		t.Errorf("empty timer must produce an empty report: %+v", report)
	}
}
