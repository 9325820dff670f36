// Command authctl administers the auth service database directly: it runs
// migrations, registers users, resets passwords, changes account status,
// checks tokens and exports user records.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
