package command

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tomatool/endtoend/internal/version"
)

func Run(args []string) error {
	app := &cli.App{
		Name:    "endtoend",
		Usage:   "Browser end-to-end tests with per-test fixtures",
		Version: version.Get().Version,
		Description: `endtoend runs Gherkin features against a fresh browser page per scenario.
Each scenario gets its own session, set up before the first step and torn
down after the last one, whether it passed or not.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"ENDTOEND_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "environment variable file path",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			initCommand,
			runCommand,
			checkCommand,
			stepsCommand,
			versionCommand,
		},
	}

	return app.Run(args)
}

func setup(c *cli.Context) error {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if envFile := c.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	}
	return nil
}
