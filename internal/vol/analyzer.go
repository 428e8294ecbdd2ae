package vol

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Analyzer validates parameters, builds argument vectors, and dispatches to
// the invoker. It is the only place precondition checks happen; the invoker
// below it trusts its argument list.
type Analyzer struct {
	inv *Invoker
}

func NewAnalyzer(inv *Invoker) *Analyzer {
	return &Analyzer{inv: inv}
}

// RunOperation executes one table entry against a memory image.
func (a *Analyzer) RunOperation(ctx context.Context, op Operation, req Request) (string, error) {
	path, err := a.checkImage(req.ImagePath)
	if err != nil {
		return "", err
	}
	req.ImagePath = path

	if op.DumpDir && req.DumpDir != "" {
		dir, err := ensureDir(req.DumpDir)
		if err != nil {
			return "", err
		}
		req.DumpDir = dir
	}

	if op.PID == PIDRequired && req.PID == nil {
		return "", &ToolError{
			Kind: KindPrecondition,
			Msg:  fmt.Sprintf("Error: A process id is required for %s", op.Plugin),
		}
	}

	out, err := a.inv.Run(ctx, op.Args(req)...)
	if err != nil {
		return "", err
	}

	if op.DumpDir && req.DumpDir != "" {
		out += dumpSummary(req.DumpDir)
	}

	return out, nil
}

// RunCustom executes a caller-named plugin. extraArgs is whitespace-tokenized
// and appended verbatim after the plugin name — an explicit escape hatch for
// arbitrary Volatility options, with no sanitization. Callers own that trust
// boundary.
func (a *Analyzer) RunCustom(ctx context.Context, imagePath, plugin, extraArgs string) (string, error) {
	path, err := a.checkImage(imagePath)
	if err != nil {
		return "", err
	}

	args := []string{"-f", path, plugin}
	args = append(args, strings.Fields(extraArgs)...)

	return a.inv.Run(ctx, args...)
}

// HelpText returns the tool's full -h banner.
func (a *Analyzer) HelpText(ctx context.Context) (string, error) {
	return a.inv.Run(ctx, "-h")
}

// ListPlugins scrapes the plugin catalogue out of the help banner.
func (a *Analyzer) ListPlugins(ctx context.Context) ([]string, error) {
	help, err := a.HelpText(ctx)
	if err != nil {
		return nil, err
	}
	return ParsePluginList(help), nil
}

// PluginHelp returns the tool's help text for a single plugin.
func (a *Analyzer) PluginHelp(ctx context.Context, plugin string) (string, error) {
	return a.inv.Run(ctx, plugin, "--help")
}

// checkImage normalizes the memory image path and requires it to be an
// existing regular file before anything is spawned.
func (a *Analyzer) checkImage(path string) (string, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", &ToolError{
			Kind: KindNotFound,
			Msg:  fmt.Sprintf("Error: Memory dump file not found at %s", path),
		}
	}
	return path, nil
}

// ensureDir normalizes the dump directory and creates it when missing.
func ensureDir(dir string) (string, error) {
	dir = filepath.Clean(dir)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &ToolError{
			Kind: KindDumpDir,
			Msg:  fmt.Sprintf("Error creating dump directory: %v", err),
			Err:  err,
		}
	}
	return dir, nil
}

// dumpSummary appends a count of dumped files after a successful run with a
// dump directory. Only direct entries count, matching the original wrapper.
func dumpSummary(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return ""
	}
	return fmt.Sprintf("\n\nDumped %d suspicious memory sections to %s", len(entries), dir)
}
