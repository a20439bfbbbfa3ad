package main

import (
	"fmt"
	"os"

	"github.com/relateai/relateai/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "relateai: %v\n", err)
		os.Exit(1)
	}
}
