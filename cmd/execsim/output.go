package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// out is the scenario runner's report writer: a colorable stream on a real
// terminal, plain stdout (color codes stripped by fatih/color itself) when
// piped, matching the teacher's cmd/utils convention of deciding color
// support once at startup rather than per print call.
var out io.Writer = os.Stdout

func init() {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		out = colorable.NewColorableStdout()
	} else {
		color.NoColor = true
	}
}

func printHeader(format string, a ...any) {
	fmt.Fprintln(out, color.New(color.Bold, color.FgCyan).Sprintf(format, a...))
}

func printOK(format string, a ...any) {
	fmt.Fprintln(out, color.New(color.FgGreen).Sprintf("  ok: "+format, a...))
}

func printFail(format string, a ...any) {
	fmt.Fprintln(out, color.New(color.FgRed, color.Bold).Sprintf("  FAIL: "+format, a...))
}

func printInfo(format string, a ...any) {
	fmt.Fprintln(out, color.New(color.FgHiBlack).Sprintf("  "+format, a...))
}
