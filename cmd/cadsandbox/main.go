// Package main provides the cadsandbox CLI.
package main

import (
	"os"

	"github.com/yuki-inaho/openscad-cadquery-sandbox/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
