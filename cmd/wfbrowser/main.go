package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mdobak/go-xerrors"

	"github.com/jlab/wfbrowser/internal/config"
	"github.com/jlab/wfbrowser/internal/database"
	"github.com/jlab/wfbrowser/internal/eventfs"
)

const usage = `usage: wfbrowser [flags] <command> [command flags]

commands:
  files    list the capture files of an event on disk
  ingest   parse an event from disk and store it
  export   write a stored event as csv, json, chart json or a tar.gz archive
  labels   attach labels from a JSON-lines file to a stored event
  filter   list stored events matching event and label criteria
  series   list or add waveform series definitions`

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		err := xerrors.New(err)
		slog.Default().ErrorContext(context.Background(), "Command failed.", slog.Any("error", err))
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	loader *eventfs.Loader
	out    io.Writer
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(stderr)
	slog.SetDefault(logger)

	if len(cfg.Args) == 0 {
		fmt.Fprintln(stderr, usage)
		return flag.ErrHelp
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		loader: eventfs.NewLoader(eventfs.NewResolver(cfg.DataDir, cfg.Location), logger),
		out:    stdout,
	}

	cmd, cmdArgs := cfg.Args[0], cfg.Args[1:]
	switch cmd {
	case "files":
		return a.files(cmdArgs)
	case "ingest":
		return a.ingest(cmdArgs)
	case "export":
		return a.export(cmdArgs)
	case "labels":
		return a.labels(cmdArgs)
	case "filter":
		return a.filter(cmdArgs)
	case "series":
		return a.series(cmdArgs)
	default:
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// openStore opens the configured database. Commands that write create the
// schema first.
func (a *app) openStore(create bool) (database.Store, error) {
	if create {
		return database.CreateStore(a.cfg.DBDriver, a.cfg.DBDSN)
	}
	return database.OpenStore(a.cfg.DBDriver, a.cfg.DBDSN)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
