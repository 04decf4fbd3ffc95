// padctl is the PairPad command-line client.
package main

import (
	"os"

	"github.com/pairpad/pairpad/cmd/padctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
