package diag

import "fmt"

// Diagnostic is a single report from a pass. Symbol names the IR entity the
// report is about (a function or global name); there is no source text in
// this tool, so there are no spans.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Symbol   string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Symbol == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s [%s] @%s: %s", d.Severity, d.Code, d.Symbol, d.Message)
}
