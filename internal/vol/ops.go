package vol

import "strconv"

// PIDMode states whether an operation takes a process id.
type PIDMode int

const (
	PIDNone PIDMode = iota
	PIDOptional
	PIDRequired
)

// Operation describes one exposed analysis: a tool name hard-mapped to a
// Volatility plugin plus the flags it accepts. The table is static and never
// mutated after process start.
type Operation struct {
	Name        string
	Plugin      string
	Description string
	PID         PIDMode
	DumpDir     bool
}

// Operations is every plugin-backed analysis the server exposes. Discovery
// operations (plugin listing, image scanning) live outside this table since
// they take no memory image.
var Operations = []Operation{
	{Name: "get_image_info", Plugin: "windows.info.Info", Description: "Get information about a memory dump file"},
	{Name: "run_pstree", Plugin: "windows.pstree.PsTree", Description: "Run the PsTree plugin to show the process tree"},
	{Name: "run_pslist", Plugin: "windows.pslist.PsList", Description: "Run the PsList plugin to list processes"},
	{Name: "run_psscan", Plugin: "windows.psscan.PsScan", Description: "Run the PsScan plugin to scan for processes that might be hidden"},
	{Name: "run_netscan", Plugin: "windows.netscan.NetScan", Description: "Run the NetScan plugin to show network connections"},
	{Name: "run_malfind", Plugin: "windows.malfind.Malfind", Description: "Run the MalFind plugin to detect injected code/DLLs", DumpDir: true},
	{Name: "run_cmdline", Plugin: "windows.cmdline.CmdLine", Description: "Run the CmdLine plugin to show process command line arguments"},
	{Name: "run_dlllist", Plugin: "windows.dlllist.DllList", Description: "Run the DllList plugin to list loaded DLLs for processes", PID: PIDOptional},
	{Name: "run_handles", Plugin: "windows.handles.Handles", Description: "Run the Handles plugin to list open handles for processes", PID: PIDOptional},
	{Name: "run_filescan", Plugin: "windows.filescan.FileScan", Description: "Run the FileScan plugin to scan for file objects"},
	{Name: "run_memmap", Plugin: "windows.memmap.Memmap", Description: "Run the MemMap plugin to show the memory map for a specific process", PID: PIDRequired},
}

// OperationByName looks up a table entry by tool name.
func OperationByName(name string) (Operation, bool) {
	for _, op := range Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Request carries the per-call parameters for one operation. It is built and
// discarded per invocation.
type Request struct {
	ImagePath string
	PID       *int
	DumpDir   string
	Extra     []string
}

// Args builds the argument vector for the operation: -f <image> <plugin>,
// then dump dir, then pid, then any extra tokens. The ordering is fixed so
// identical requests always produce identical vectors.
func (op Operation) Args(req Request) []string {
	args := []string{"-f", req.ImagePath, op.Plugin}
	if op.DumpDir && req.DumpDir != "" {
		args = append(args, "--dump-dir", req.DumpDir)
	}
	if op.PID != PIDNone && req.PID != nil {
		args = append(args, "--pid", strconv.Itoa(*req.PID))
	}
	return append(args, req.Extra...)
}
