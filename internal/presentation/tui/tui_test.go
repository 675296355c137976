package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer(t *testing.T) {
	render, err := tui.NewPlainRenderer(80)
	require.NoError(t, err)

	out, err := render("Hello **there**\n\n")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Hello"), "leading margin and trailing blank lines are trimmed: %q", out)
	assert.Contains(t, out, "there")
	assert.NotContains(t, out, "\x1b[", "no ANSI escapes")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)

	lines := strings.Split(strings.Trim(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 6)
}
