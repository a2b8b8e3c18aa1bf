package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"procsim"
	"procsim/config"
	"procsim/library"
)

// exitError 带退出码的错误
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// newLogger slog 处理器上的 logr 日志
func newLogger(level, format string, w io.Writer) logr.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "trace":
		l = slog.Level(-2)
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: l}
	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return logr.FromSlogHandler(h)
}

func run(out, errW io.Writer, args []string) error {
	fs := flag.NewFlagSet("procsim", flag.ContinueOnError)
	fs.SetOutput(errW)
	cfgPath := fs.String("config", "", "HCL 运行配置文件")
	only := fs.String("sim", "", "只运行指定名称的 simulation 块")
	list := fs.Bool("list", false, "列出库中的问题")
	level := fs.String("log-level", "info", "日志级别: trace, debug, info, warn, error")
	format := fs.String("log-format", "text", "日志格式: text, json")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &exitError{code: 2, err: err}
	}
	if *list {
		for _, name := range library.Names() {
			e, _ := library.Lookup(name)
			fmt.Fprintf(out, "%-16s %s\n", name, e.Description)
		}
		return nil
	}
	if *cfgPath == "" {
		fs.Usage()
		return &exitError{code: 2, err: errors.New("缺少 -config")}
	}
	log := newLogger(*level, *format, errW)

	file, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	sims := file.Simulations
	if *only != "" {
		s, err := file.Simulation(*only)
		if err != nil {
			return err
		}
		sims = []*config.Simulation{s}
	}
	for _, s := range sims {
		outcome, err := procsim.Run(s, log)
		if err != nil {
			return fmt.Errorf("simulation %s: %w", s.Name, err)
		}
		fmt.Fprintf(out, "== %s (%s) %s\n", s.Name, s.Problem, outcome.Simulation.Kind())
		if o := outcome.Optimization; o != nil {
			fmt.Fprintf(out, "optimum f=%g evaluations=%d status=%s\n", o.F, o.Evaluations, o.Status)
			printValues(out, o.X)
		}
		printValues(out, outcome.Simulation.Results())
	}
	return nil
}

func printValues(w io.Writer, values map[string]float64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-20s %.10g\n", k, values[k])
	}
}
