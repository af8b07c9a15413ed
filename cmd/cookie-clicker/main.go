// Command cookie-clicker runs the idle cookie clicker game.
package main

import (
	"os"

	"github.com/MRamiBalles/CookieClicker/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
