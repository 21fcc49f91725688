// Command taskctl manages a task list from the terminal. The session survives
// between invocations in the configured credential storage.
package main

import (
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
