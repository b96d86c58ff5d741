package diag

import "fmt"

// Code identifies a diagnostic category.
type Code uint16

const (
	// UnknownCode is the zero code.
	UnknownCode Code = 0

	// Linker family: demand-driven import and module merge.
	LinkInfo               Code = 1000
	LinkMaterializeFailure Code = 1001
	LinkUnresolvedBuiltin  Code = 1002
	LinkMergeConflict      Code = 1003

	// Lowering family: builtin-to-intrinsic rewrite.
	LowerInfo          Code = 2000
	LowerCtlzWidth     Code = 2001
	LowerBadOperand    Code = 2002
	LowerUnknownIntrin Code = 2003

	// Repair family: bitcast signature repair.
	RepairInfo          Code = 3000
	RepairArityMismatch Code = 3001
	RepairCloneFailure  Code = 3002

	// Library family: BiF library loading and materialization.
	LibInfo        Code = 4000
	LibParseError  Code = 4001
	LibNoBody      Code = 4002
	LibIndexStale  Code = 4003
	LibBadManifest Code = 4004
)

func (c Code) String() string {
	return fmt.Sprintf("B%04d", uint16(c))
}
