package main

import (
	"os"

	"github.com/Filipo11021/nitro/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
