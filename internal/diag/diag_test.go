package diag_test

import (
	"strings"
	"testing"

	"biflink/internal/diag"
)

func TestCodeString(t *testing.T) {
	cases := []struct {
		code diag.Code
		want string
	}{
		{diag.LinkMaterializeFailure, "B1001"},
		{diag.LowerCtlzWidth, "B2001"},
		{diag.RepairArityMismatch, "B3001"},
		{diag.LibParseError, "B4001"},
	}
	for _, tc := range cases {
		if got := tc.code.String(); got != tc.want {
			t.Errorf("Code(%d).String() = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestDiagnosticString(t *testing.T) {
	d := diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.RepairArityMismatch,
		Symbol:   "widget",
		Message:  "call needs 2 params, definition has 1",
	}
	s := d.String()
	for _, part := range []string{"WARNING", "B3001", "@widget", "2 params"} {
		if !strings.Contains(s, part) {
			t.Errorf("diagnostic %q missing %q", s, part)
		}
	}
	d.Symbol = ""
	if strings.Contains(d.String(), "@") {
		t.Errorf("symbol-less diagnostic must not render a symbol: %q", d.String())
	}
}

func TestBag(t *testing.T) {
	bag := diag.NewBag(2)
	diag.Info(bag, diag.LinkInfo, "a", "one")
	if bag.HasErrors() {
		t.Errorf("info must not count as an error")
	}
	diag.Warning(bag, diag.RepairArityMismatch, "b", "two")
	diag.Error(bag, diag.LinkMergeConflict, "c", "dropped past the cap")
	if got := bag.Count(); got != 2 {
		t.Errorf("Count = %d, want the cap of 2", got)
	}
	if bag.HasErrors() {
		t.Errorf("the dropped error must not be recorded")
	}
	diag.Error(diag.Nop{}, diag.LinkMergeConflict, "", "discarded")
}

func TestBag_DefaultCap(t *testing.T) {
	bag := diag.NewBag(0)
	for i := 0; i < 150; i++ {
		diag.Info(bag, diag.LinkInfo, "", "x")
	}
	if got := bag.Count(); got != 100 {
		t.Errorf("Count = %d, want the default cap of 100", got)
	}
}
