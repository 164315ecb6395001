package main

import (
	"os"

	"github.com/MeKo-Tech/freqaug/cmd/freqaug/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
