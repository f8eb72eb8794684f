package main

import (
	"fmt"
	"os"

	"github.com/cucumber/godog/colors"

	"github.com/tomatool/endtoend/command"
)

func main() {
	if err := command.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", colors.Bold(colors.Red)(err))
		os.Exit(1)
	}
}
