package ui

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrintf(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	Successf(&buf, "Generated %s with %d functions", "out.json", 3)
	Warningf(&buf, "first\nsecond")
	Activityf(&buf, "plain")

	assert.Equal(t, "✔ Generated out.json with 3 functions\n⚠ first\n  second\n► plain\n", buf.String())
}
