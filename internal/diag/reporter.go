package diag

// Reporter is the minimal contract for receiving diagnostics from passes.
// Implementations: Bag (accumulates), Nop (discards).
type Reporter interface {
	Report(d Diagnostic)
}

// Nop discards every diagnostic.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(Diagnostic) {}

// Error reports a SevError diagnostic.
func Error(r Reporter, code Code, symbol, msg string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{Severity: SevError, Code: code, Symbol: symbol, Message: msg})
}

// Warning reports a SevWarning diagnostic.
func Warning(r Reporter, code Code, symbol, msg string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{Severity: SevWarning, Code: code, Symbol: symbol, Message: msg})
}

// Info reports a SevInfo diagnostic.
func Info(r Reporter, code Code, symbol, msg string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{Severity: SevInfo, Code: code, Symbol: symbol, Message: msg})
}
