package vol

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/volforge/volmcp/internal/config"
)

// Invoker runs the Volatility 3 entry script as a child process and captures
// its output. Every invocation is independent; the invoker holds no mutable
// state, so concurrent calls need no coordination.
type Invoker struct {
	python string
	dir    string
	entry  string
	runner CommandRunner
}

// NewInvoker creates an invoker executing real subprocesses.
func NewInvoker(cfg *config.Config) *Invoker {
	return NewInvokerWithRunner(cfg, ExecRunner{})
}

// NewInvokerWithRunner creates an invoker with a caller-supplied runner,
// letting tests substitute a spawn spy for the real tool.
func NewInvokerWithRunner(cfg *config.Config, runner CommandRunner) *Invoker {
	return &Invoker{
		python: cfg.Python,
		dir:    cfg.VolatilityDir,
		entry:  cfg.EntryPoint,
		runner: runner,
	}
}

// Run invokes vol.py with args, blocking until the child exits. The returned
// text is decoded stdout; invalid byte sequences become U+FFFD rather than
// failing the call. Failures come back as *ToolError.
func (inv *Invoker) Run(ctx context.Context, args ...string) (string, error) {
	cmdArgs := append([]string{inv.entry}, args...)
	slog.Debug("running volatility", "python", inv.python, "args", cmdArgs)

	stdout, stderr, code, err := inv.runner.Run(ctx, inv.dir, inv.python, cmdArgs...)
	if err != nil {
		return "", &ToolError{
			Kind: KindSpawnFailed,
			Msg:  "starting volatility",
			Err:  err,
		}
	}
	if code != 0 {
		return "", &ToolError{
			Kind:   KindToolFailed,
			Msg:    fmt.Sprintf("volatility exited with code %d", code),
			Stderr: decode(stderr),
		}
	}

	return decode(stdout), nil
}

// decode converts captured output to text, replacing invalid UTF-8 sequences
// with the replacement character. Each run of invalid bytes collapses into a
// single U+FFFD, so the result is not byte-for-byte identical to a decoder
// that replaces per byte.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
