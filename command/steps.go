package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tomatool/endtoend/steps"
)

var stepsCommand = &cli.Command{
	Name:  "steps",
	Usage: "List available Gherkin steps",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Filter steps by keyword",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output in JSON format",
		},
	},
	Action: runSteps,
}

func filterSteps(filter string) []steps.Definition {
	filter = strings.ToLower(filter)
	var matching []steps.Definition
	for _, step := range steps.Definitions() {
		if filter != "" &&
			!strings.Contains(strings.ToLower(step.Description), filter) &&
			!strings.Contains(strings.ToLower(step.Pattern), filter) {
			continue
		}
		matching = append(matching, step)
	}
	return matching
}

func runSteps(ctx *cli.Context) error {
	matching := filterSteps(ctx.String("filter"))
	w := ctx.App.Writer

	if ctx.Bool("json") {
		output, err := json.MarshalIndent(matching, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	fmt.Fprintf(w, "\n%s\n\n", categoryStyle.Render("Browser"))
	for _, step := range matching {
		fmt.Fprintf(w, "  %s\n", titleStyle.Render(step.Description))
		fmt.Fprintf(w, "  %s\n", patternStyle.Render(step.Pattern))
		fmt.Fprintf(w, "  %s\n\n", suggestionStyle.Render("Example: "+step.Example))
	}
	return nil
}
