package main

import (
	"os"

	"github.com/adalundhe/strand/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
