// Command dc3build is a command-line interface for the datacube builder.
package main

import (
	"fmt"
	"os"

	"github.com/dc3/cubebuilder/internal/cliutil"
)

func main() {
	cfg := cliutil.InitializeConfig()
	if err := cfg.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
