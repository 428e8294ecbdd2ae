package vol

import "fmt"

// ErrorKind classifies what went wrong with an invocation. The original
// wrapper collapsed all failures into display text; the kind tag keeps them
// distinguishable inside the process while RenderText preserves the wire
// strings.
type ErrorKind int

const (
	// KindNotFound means a required path (memory image, search dir) does
	// not reference an existing file or directory. Volatility was never
	// started.
	KindNotFound ErrorKind = iota
	// KindDumpDir means the dump target directory could not be created.
	// Volatility was never started.
	KindDumpDir
	// KindToolFailed means Volatility ran and exited non-zero.
	KindToolFailed
	// KindSpawnFailed means the interpreter could not be started at all.
	KindSpawnFailed
	// KindPrecondition means a required parameter was absent or invalid.
	// Volatility was never started.
	KindPrecondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDumpDir:
		return "dump_dir"
	case KindToolFailed:
		return "tool_failed"
	case KindSpawnFailed:
		return "spawn_failed"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Outcome names the result of an invocation for logs and audit records.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if te, ok := err.(*ToolError); ok {
		return te.Kind.String()
	}
	return "error"
}

// ToolError carries a classified invocation failure. Stderr is only set for
// KindToolFailed.
type ToolError struct {
	Kind   ErrorKind
	Msg    string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// RenderText flattens an invocation outcome into the single text channel the
// callers expect. Success text passes through verbatim; each failure kind
// renders the same strings the original wrapper produced.
func RenderText(out string, err error) string {
	if err == nil {
		return out
	}

	te, ok := err.(*ToolError)
	if !ok {
		return fmt.Sprintf("Exception running Volatility: %v", err)
	}

	switch te.Kind {
	case KindToolFailed:
		return fmt.Sprintf("Error running Volatility command: %s", te.Stderr)
	case KindSpawnFailed:
		return fmt.Sprintf("Exception running Volatility: %s", te.Error())
	default:
		// precondition failures already carry their display text
		return te.Msg
	}
}
