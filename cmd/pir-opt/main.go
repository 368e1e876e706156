// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"lazyjit/internal/config"
	"lazyjit/internal/errors"
	"lazyjit/internal/ir"
	"lazyjit/internal/opt"
	"lazyjit/internal/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pir-opt <file.pir> [config.toml]")
		atexit.Exit(1)
	}

	startTime := time.Now()
	path := os.Args[1]
	configPath := ""
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		atexit.Exit(1)
	}
	configureLogging(cfg.Log)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		atexit.Exit(1)
	}

	fns, err := parser.ParseSource(path, string(source))
	if err != nil {
		errorReporter := errors.NewErrorReporter(path, string(source))
		if diags, ok := err.(parser.Errors); ok {
			for _, d := range diags {
				fmt.Print(errorReporter.FormatError(d))
			}
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		atexit.Exit(1)
	}

	pipeline, err := opt.FromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		atexit.Exit(1)
	}

	printer := ir.NewPrinter(true)
	for _, fn := range fns {
		if !optimize(pipeline, fn) {
			color.Red("Optimization of %s failed after %s", fn.Name, formatDuration(time.Since(startTime)))
			atexit.Exit(2)
		}
		if sig, ok := pipeline.Summarize(fn); ok {
			fmt.Println(color.New(color.Faint).Sprintf("; %s: %s", fn.Name, sig))
		}
		fmt.Print(printer.Function(fn))
	}

	color.Green("Successfully optimized %s in %s", path, formatDuration(time.Since(startTime)))
	atexit.Exit(0)
}

// optimize verifies and optimizes fn, reporting a contract violation
// instead of crashing on it
func optimize(pipeline *opt.Pipeline, fn *ir.Function) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		v, isViolation := errors.AsViolation(r)
		if !isViolation {
			panic(r)
		}
		fmt.Print(errors.FormatViolation(v))
		fmt.Print(ir.Print(fn))
		ok = false
	}()

	ir.MustVerify(fn)
	pipeline.Run(fn)
	return true
}

func configureLogging(cfg config.Log) {
	var logPath *string
	if cfg.File != "" {
		logPath = &cfg.File
	}
	commonlog.Configure(cfg.Verbosity, logPath)
	atexit.Register(color.Unset)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
