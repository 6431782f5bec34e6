// Command plugmods resolves stable aliases for the anonymous modules of a
// bundled require.js application.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/plugmods/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		// Commands report their own failures.
		os.Exit(exitErr.Code)
	}
	// Usage and flag errors, which cobra was told not to print.
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(cli.ExitCommandError)
}
