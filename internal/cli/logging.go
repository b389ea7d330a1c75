package cli

import (
	"io"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
)

func newLogger(w io.Writer, verbose bool) hclog.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "autodocs",
		Level:  level,
		Output: w,
	})
}

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
)
