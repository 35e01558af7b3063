package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/adilg123/lzhuff/internal/config"
	"github.com/adilg123/lzhuff/internal/logging"
	"go.uber.org/zap"
)

const version = "1.0.0"

const usage = `Usage: lzhuff [-config file] <command> [arguments]

Commands:
  comp [-progress] <source> <archive>   compress a file
  decomp <archive> <destination>        decompress an archive
  size <file>                           print the size of a file
  equal <first> <second>                compare two files
  compare [-chart out.svg] <file>       compare lzhuff with other codecs
  about                                 describe the archive format
  serve                                 start the HTTP API

Without a command lzhuff reads commands interactively from standard input.
`

var errUsage = errors.New("invalid arguments")

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lzhuff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "lzhuff:", err)
		return 1
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, "lzhuff:", err)
		return 1
	}
	defer logger.Sync()

	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: logger,
	}

	if fs.NArg() == 0 {
		if err := a.interactive(); err != nil {
			fmt.Fprintln(stderr, "lzhuff:", err)
			return 1
		}
		return 0
	}

	if err := a.dispatch(fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(stderr, "lzhuff:", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		return 1
	}
	return 0
}

func (a *app) dispatch(command string, args []string) error {
	switch command {
	case "comp":
		return a.compCommand(args)
	case "decomp":
		return a.decompCommand(args)
	case "size":
		return a.sizeCommand(args)
	case "equal":
		return a.equalCommand(args)
	case "compare":
		return a.compareCommand(args)
	case "about":
		return a.aboutCommand(args)
	case "serve":
		return a.serveCommand(args)
	case "help":
		fmt.Fprint(a.stdout, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}
