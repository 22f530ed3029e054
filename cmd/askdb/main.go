// Package main provides the askdb CLI.
package main

import (
	"os"

	"github.com/askdb-io/askdb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
