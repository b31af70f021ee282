package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/papercheck/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one check and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339})

	cfg, err := app.ParseArgs("papercheck", args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return app.ExitOK
		}
		log.Error().Err(err).Msg("invalid arguments")
		return app.ExitConfig
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Debug().Str("version", app.BuildVersion).Str("commit", app.BuildCommit).Msg("papercheck starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, stdout)
	if err != nil {
		log.Error().Err(err).Msg("init app")
		return app.ExitCode(err)
	}

	out, err := a.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return app.ExitCode(err)
	}
	log.Info().
		Int("total", out.Result.Summary.TotalChecks).
		Int("failed", out.Result.Summary.FailedChecks).
		Float64("pass_rate", out.Result.Summary.PassRate).
		Str("annotated", out.Annotation.Path).
		Msg("check complete")
	return app.ExitOK
}
