package main

import (
	"os"

	"github.com/vkuzmin/jobpilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
