package main

import (
	"os"

	"github.com/nvsudo/jodi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
