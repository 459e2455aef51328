// Package main is the entry point for the gdpdu-postings CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/gdpdu-postings/cmd/gdpdu-postings/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
