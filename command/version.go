package command

import (
	"fmt"
	"sort"

	"github.com/tomatool/endtoend/internal/version"
	"github.com/urfave/cli/v2"
)

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Action: func(c *cli.Context) error {
		info := version.Get()
		w := c.App.Writer
		fmt.Fprintln(w, info.String())
		fmt.Fprintf(w, "  Go:       %s\n", info.GoVersion)
		fmt.Fprintf(w, "  Platform: %s\n", info.Platform)

		names := make([]string, 0, len(info.Drivers))
		for name := range info.Drivers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-16s%s\n", name+":", info.Drivers[name])
		}
		return nil
	},
}
