package command

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tomatool/endtoend/fixture/app"
	"github.com/tomatool/endtoend/internal/config"
	"github.com/tomatool/endtoend/internal/container"
	"github.com/tomatool/endtoend/internal/runner"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run feature files against a fresh browser page per scenario",
	ArgsUsage: "[feature paths...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   config.DefaultPath,
			Usage:   "config file path",
		},
		&cli.StringFlag{
			Name:    "tags",
			Aliases: []string{"t"},
			Usage:   "only run scenarios matching the tag expression",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format (pretty, progress, junit, cucumber, events)",
		},
		&cli.StringFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "only run scenarios whose name matches the regex",
		},
		&cli.BoolFlag{
			Name:  "headed",
			Usage: "show the browser window",
		},
		&cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "stop on the first failure",
		},
	},
	Action: runTests,
}

func runTests(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	if c.Args().Len() > 0 {
		cfg.Features.Paths = c.Args().Slice()
	}
	if c.IsSet("tags") {
		cfg.Features.Tags = c.String("tags")
	}
	if c.Bool("headed") {
		headless := false
		cfg.Browser.Headless = &headless
	}
	if c.IsSet("fail-fast") {
		cfg.Settings.FailFast = c.Bool("fail-fast")
	}

	if cfg.Browser.Container.Enabled || cfg.App.Mode() == app.ModeContainer && cfg.App.Enabled() {
		if err := container.CheckDockerAvailable(); err != nil {
			return err
		}
	}

	r, err := runner.New(cfg, runner.Options{
		Format:   c.String("format"),
		Scenario: c.String("scenario"),
	})
	if err != nil {
		return err
	}

	log.Debug().
		Str("mode", cfg.EngineOptions().Mode()).
		Strs("paths", cfg.Features.Paths).
		Msg("running features")
	return r.Run(c.Context)
}

// loadConfig loads path, falling back to defaults when the default file is absent.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == config.DefaultPath && errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("no config file, using defaults")
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading %s: %w", path, err)
}
