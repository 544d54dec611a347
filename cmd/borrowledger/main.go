// Command borrowledger runs the borrow ledger benchmarks, stress test and
// end-to-end scenarios.
package main

import (
	"os"

	"github.com/Iron-Ham/borrowledger/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
