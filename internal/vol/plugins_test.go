package vol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePluginList_ExtractsSection(t *testing.T) {
	a := assert.New(t)

	// given
	help := `Volatility 3 Framework 2.5.0
usage: vol.py [-h] [-c CONFIG] plugin ...

Plugins
  windows.pslist.PsList
  windows.pstree.PsTree
  windows.netscan.NetScan

The following options are common to all plugins:
  -h, --help  show this help message
`

	// when
	plugins := ParsePluginList(help)

	// then
	a.Equal([]string{
		"windows.pslist.PsList",
		"windows.pstree.PsTree",
		"windows.netscan.NetScan",
	}, plugins)
}

func TestParsePluginList_StopsAtFirstBlankLine(t *testing.T) {
	a := assert.New(t)

	// given
	help := "Plugins\none\ntwo\nthree\n\nnot.a.plugin\n"

	// when
	plugins := ParsePluginList(help)

	// then
	a.Equal([]string{"one", "two", "three"}, plugins)
}

func TestParsePluginList_NoHeading(t *testing.T) {
	a := assert.New(t)

	// given
	help := "usage: vol.py [-h]\n\nsome other text\n"

	// when
	plugins := ParsePluginList(help)

	// then
	a.Empty(plugins)
}

func TestParsePluginList_HeadingMatchedAfterTrim(t *testing.T) {
	a := assert.New(t)

	// given
	help := "banner\n  Plugins  \n  a.b.C\n\n"

	// when
	plugins := ParsePluginList(help)

	// then
	a.Equal([]string{"a.b.C"}, plugins)
}
