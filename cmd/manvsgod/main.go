// Command manvsgod serves the Man vs God game and its evolving rules engine.
//
// Usage:
//
//	manvsgod serve [--config=<path>]
//	manvsgod rules [--config=<path>]
//	manvsgod simulate [--decisions=N] [--follow-rate=F] [--spare-rate=F]
//	manvsgod analyze <fen> [--square=e2]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
