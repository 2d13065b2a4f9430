// Command x2s converts SAP calculation view XML to portable SQL and
// ABAP reports.
package main

import (
	"os"

	"github.com/x2s-labs/x2s/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
