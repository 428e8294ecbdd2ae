package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volforge/volmcp/internal/config"
	"github.com/volforge/volmcp/internal/history"
	"github.com/volforge/volmcp/internal/vol"
)

type runnerCall struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	stdout   []byte
	stderr   []byte
	exitCode int
	err      error
	calls    []runnerCall
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, []byte, int, error) {
	f.calls = append(f.calls, runnerCall{dir: dir, name: name, args: args})
	return f.stdout, f.stderr, f.exitCode, f.err
}

// startSession wires the server and a client over in-memory transports.
func startSession(t *testing.T, runner vol.CommandRunner, hist *history.Store) *mcp.ClientSession {
	t.Helper()

	cfg := &config.Config{
		Python:        "python3",
		VolatilityDir: "/opt/volatility3",
		EntryPoint:    "/opt/volatility3/vol.py",
	}
	analyzer := vol.NewAnalyzer(vol.NewInvokerWithRunner(cfg, runner))

	m := mcp.NewServer(&mcp.Implementation{Name: "volmcp-test", Version: "test"}, nil)
	New(analyzer, hist).Register(m)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		session, err := m.Connect(ctx, serverTransport, nil)
		if err != nil {
			return
		}
		<-ctx.Done()
		_ = session.Close()
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "volmcp-test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
	})

	return session
}

func callText(t *testing.T, session *mcp.ClientSession, tool string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.raw")
	require.NoError(t, os.WriteFile(path, []byte("MDMP"), 0644))
	return path
}

func TestPslistEndToEnd(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	img := writeImage(t)
	runner := &fakeRunner{stdout: []byte("FAKE PSLIST OUTPUT")}
	session := startSession(t, runner, nil)

	// when
	text := callText(t, session, "run_pslist", map[string]any{"memory_dump_path": img})

	// then
	a.Equal("FAKE PSLIST OUTPUT", text)
	r.Len(runner.calls, 1)
	a.Equal([]string{"/opt/volatility3/vol.py", "-f", img, "windows.pslist.PsList"}, runner.calls[0].args)
}

func TestMissingImageReturnsErrorTextWithoutSpawning(t *testing.T) {
	a := assert.New(t)

	// given
	runner := &fakeRunner{stdout: []byte("must not appear")}
	session := startSession(t, runner, nil)

	// when
	text := callText(t, session, "get_image_info", map[string]any{
		"memory_dump_path": "/missing/memory.raw",
	})

	// then
	a.Equal("Error: Memory dump file not found at /missing/memory.raw", text)
	a.Empty(runner.calls)
}

func TestToolFailureSurfacesStderrInBand(t *testing.T) {
	a := assert.New(t)

	// given
	img := writeImage(t)
	runner := &fakeRunner{stderr: []byte("boom"), exitCode: 2}
	session := startSession(t, runner, nil)

	// when
	text := callText(t, session, "run_netscan", map[string]any{"memory_dump_path": img})

	// then
	a.Contains(text, "Error running Volatility command:")
	a.Contains(text, "boom")
}

func TestDlllistForwardsPID(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	img := writeImage(t)
	runner := &fakeRunner{stdout: []byte("dlls")}
	session := startSession(t, runner, nil)

	// when
	callText(t, session, "run_dlllist", map[string]any{
		"memory_dump_path": img,
		"pid":              4242,
	})

	// then
	r.Len(runner.calls, 1)
	a.Equal([]string{"/opt/volatility3/vol.py", "-f", img, "windows.dlllist.DllList", "--pid", "4242"}, runner.calls[0].args)
}

func TestCustomPluginTokenizesArgsOnWire(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	img := writeImage(t)
	runner := &fakeRunner{stdout: []byte("registry hives")}
	session := startSession(t, runner, nil)

	// when
	text := callText(t, session, "run_custom_plugin", map[string]any{
		"memory_dump_path": img,
		"plugin_name":      "windows.registry.hivelist.HiveList",
		"additional_args":  "--offset 0xdead",
	})

	// then
	a.Equal("registry hives", text)
	r.Len(runner.calls, 1)
	a.Equal([]string{
		"/opt/volatility3/vol.py", "-f", img,
		"windows.registry.hivelist.HiveList", "--offset", "0xdead",
	}, runner.calls[0].args)
}

func TestListMemoryDumps(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	dir := t.TempDir()
	r.NoError(os.WriteFile(filepath.Join(dir, "win10.vmem"), make([]byte, 2*1024*1024), 0644))
	runner := &fakeRunner{}
	session := startSession(t, runner, nil)

	// when
	text := callText(t, session, "list_memory_dumps", map[string]any{"search_dir": dir})

	// then
	a.Contains(text, "Found memory dump files:")
	a.Contains(text, "win10.vmem (Size: 2.00 MB)")
	a.Empty(runner.calls, "scanning never touches volatility")
}

func TestListAvailablePluginsReturnsHelpText(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	runner := &fakeRunner{stdout: []byte("Volatility 3 Framework\nPlugins\nwindows.pslist.PsList\n\n")}
	session := startSession(t, runner, nil)

	// when
	text := callText(t, session, "list_available_plugins", nil)

	// then
	a.Contains(text, "windows.pslist.PsList")
	r.Len(runner.calls, 1)
	a.Equal([]string{"/opt/volatility3/vol.py", "-h"}, runner.calls[0].args)
}

func TestPluginsResource(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	runner := &fakeRunner{stdout: []byte("banner\nPlugins\nwindows.pslist.PsList\nwindows.info.Info\n\ntrailing\n")}
	session := startSession(t, runner, nil)

	// when
	result, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{
		URI: "volatility://plugins",
	})

	// then
	r.NoError(err)
	r.Len(result.Contents, 1)
	a.Equal("application/json", result.Contents[0].MIMEType)

	var plugins []string
	r.NoError(json.Unmarshal([]byte(result.Contents[0].Text), &plugins))
	a.Equal([]string{"windows.pslist.PsList", "windows.info.Info"}, plugins)
}

func TestPluginHelpResource(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	runner := &fakeRunner{stdout: []byte("usage: windows.pslist.PsList [--pid PID]")}
	session := startSession(t, runner, nil)

	// when
	result, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{
		URI: "volatility://help/windows.pslist.PsList",
	})

	// then
	r.NoError(err)
	r.Len(result.Contents, 1)
	a.Contains(result.Contents[0].Text, "usage: windows.pslist.PsList")
	r.Len(runner.calls, 1)
	a.Equal([]string{"/opt/volatility3/vol.py", "windows.pslist.PsList", "--help"}, runner.calls[0].args)
}

func TestToolSchemasAdvertiseRequiredParams(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	session := startSession(t, &fakeRunner{}, nil)

	// when
	tools := map[string]*mcp.Tool{}
	for tool, err := range session.Tools(context.Background(), nil) {
		r.NoError(err)
		tools[tool.Name] = tool
	}

	// then
	r.Contains(tools, "run_memmap")
	a.Contains(tools["run_memmap"].InputSchema.Required, "memory_dump_path")
	a.Contains(tools["run_memmap"].InputSchema.Required, "pid")

	r.Contains(tools, "run_dlllist")
	a.Contains(tools["run_dlllist"].InputSchema.Properties, "pid")
	a.NotContains(tools["run_dlllist"].InputSchema.Required, "pid")

	r.Contains(tools, "run_custom_plugin")
	a.Contains(tools["run_custom_plugin"].InputSchema.Required, "plugin_name")

	r.Contains(tools, "list_available_plugins")
	a.Empty(tools["list_available_plugins"].InputSchema.Required)
}

func TestHistoryRecordsInvocations(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)

	// given
	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	r.NoError(err)
	t.Cleanup(func() { store.Close() })

	img := writeImage(t)
	runner := &fakeRunner{stdout: []byte("procs")}
	session := startSession(t, runner, store)

	// when
	callText(t, session, "run_pslist", map[string]any{"memory_dump_path": img})
	callText(t, session, "run_pstree", map[string]any{"memory_dump_path": "/missing.raw"})

	// then
	records, err := store.Recent(10)
	r.NoError(err)
	r.Len(records, 2)

	byTool := map[string]history.Record{}
	for _, rec := range records {
		byTool[rec.Tool] = rec
	}
	a.Equal("ok", byTool["run_pslist"].Outcome)
	a.Equal(img, byTool["run_pslist"].Image)
	a.Equal("not_found", byTool["run_pstree"].Outcome)
}
