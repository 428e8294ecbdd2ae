package vol

import "strings"

// ParsePluginList scrapes plugin names out of Volatility's -h banner. Lines
// are ignored until one reading exactly "Plugins"; every non-blank line after
// that is a plugin name, and the first blank line ends the section.
//
// This tracks the tool's human-oriented help output and will break if the
// banner format changes; the catalogue is best-effort, not a contract.
func ParsePluginList(help string) []string {
	var plugins []string
	capture := false
	for _, line := range strings.Split(help, "\n") {
		trimmed := strings.TrimSpace(line)
		if !capture {
			if trimmed == "Plugins" {
				capture = true
			}
			continue
		}
		if trimmed == "" {
			break
		}
		plugins = append(plugins, trimmed)
	}
	return plugins
}
