package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"axiomind/internal/apperr"
	"axiomind/internal/config"
	"axiomind/internal/logging"
)

type CLI struct {
	Verbose bool `short:"V" help:"Log at debug level on stderr."`

	Play    PlayCmd    `cmd:"" help:"Play heads-up against the ai or another human"`
	Sim     SimCmd     `cmd:"" help:"Simulate a match between two policies into a JSONL file"`
	Stats   StatsCmd   `cmd:"" help:"Summarise hand histories under a file or directory"`
	Verify  VerifyCmd  `cmd:"" help:"Check a hand history for rule and integrity violations"`
	Replay  ReplayCmd  `cmd:"" help:"Rebuild and print hands from their actions"`
	Deal    DealCmd    `cmd:"" help:"Deal and check down a single hand"`
	Eval    EvalCmd    `cmd:"" help:"Play two policies head to head"`
	Export  ExportCmd  `cmd:"" help:"Convert a hand history to csv, json or sqlite"`
	Dataset DatasetCmd `cmd:"" help:"Split a hand history into train/val/test files"`
	Cfg     CfgCmd     `cmd:"" help:"Print the effective configuration as YAML"`
	Doctor  DoctorCmd  `cmd:"" help:"Check the local environment"`
	RNG     RNGCmd     `cmd:"" name:"rng" help:"Show a seeded shuffle and its fingerprint"`
	Bench   BenchCmd   `cmd:"" help:"Measure evaluator throughput"`
	Serve   ServeCmd   `cmd:"" help:"Run the HTTP server"`
}

// runContext is bound into every command's Run method.
type runContext struct {
	ctx    context.Context
	cfg    config.AppConfig
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	isTTY  func() bool
}

var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("axiomind"),
		kong.Description("Heads-up no-limit hold'em engine, simulator, verifier and server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "axiomind: %v\n", err)
		return 2
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "axiomind: %v\n", err)
		return 2
	}

	cfg, err := config.LoadApp()
	if err != nil {
		fmt.Fprintf(stderr, "axiomind: load config: %v\n", err)
		return 2
	}
	// Batch commands keep stderr quiet; the server logs at the configured level.
	logCfg := cfg.Log
	if kctx.Command() != "serve" {
		logCfg.Level = "warn"
	}
	if cli.Verbose {
		logCfg.Level = "debug"
	}
	closeLog, err := logging.Init(logCfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "axiomind: init logging: %v\n", err)
		return 2
	}
	defer closeLog()

	rc := &runContext{
		ctx:    ctx,
		cfg:    cfg,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		isTTY:  stdinIsTerminal,
	}
	err = kctx.Run(rc)
	if err != nil {
		fmt.Fprintf(stderr, "axiomind: %v\n", err)
	}
	return apperr.ExitCode(err)
}
