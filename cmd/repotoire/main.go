// Command repotoire analyzes a repository's code graph for architectural
// smells, security anti-patterns, and dead code, then scores its overall
// health. The CLI surface (flags, commands, exit codes) follows the shape
// of the teacher's cmd/lci/main.go: a single urfave/cli/v2 App with a
// handful of StringFlag/BoolFlag/IntFlag declarations feeding a plain Go
// function.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/repotoire-go/repotoire/internal/rlog"
	"github.com/repotoire-go/repotoire/internal/version"
)

func main() {
	app := &cli.App{
		Name:                   "repotoire",
		Usage:                  "Repository-wide static analysis: architecture, security, and dead-code findings with a health score",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Commands: []*cli.Command{
			analyzeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		rlog.Warnf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a terminal error to the process exit code spec.md §6
// requires: 2 for invalid arguments/config, the carried code for a
// cli.ExitCoder, 1 for everything else. The fail-on exit is a cli.Exit
// raised in analyze.go, which urfave/cli handles itself before Run
// returns, so it normally never passes through this path.
func exitCodeFor(err error) int {
	var invalidErr *invalidArgsError
	if errors.As(err, &invalidErr) {
		return 2
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// invalidArgsError marks a failure as exit-code-2 territory: bad flags,
// bad config, an unreadable path — the class of errors a user can fix
// without re-running with different source code.
type invalidArgsError struct{ err error }

func (e *invalidArgsError) Error() string { return e.err.Error() }
func (e *invalidArgsError) Unwrap() error { return e.err }

func invalidArgs(format string, args ...any) error {
	return &invalidArgsError{err: fmt.Errorf(format, args...)}
}
