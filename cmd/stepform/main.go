// Command stepform serves the signup wizard over the live protocol and
// runs it in the terminal.
package main

import (
	"fmt"
	"os"
)

// version is set via ldflags during build.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
