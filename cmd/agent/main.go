// Command agent is the searchlab command line client for the device
// authorization service. It logs in through the device flow, keeps the
// token pair on disk and hands out access tokens to scripts.
//
//	agent login                 # blocks until a human approves
//	agent token --non-blocking  # prints a token or the approval instructions
//	agent approve --code WDJB-MJHT --user alice
//	agent whoami
//	agent logout
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			if msg := err.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return &exitError{code: 2, err: errors.New("")}
	}

	cmd, ok := commands[args[0]]
	if !ok {
		switch args[0] {
		case "-h", "--help", "help":
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return &exitError{code: 2, err: fmt.Errorf("unknown command %q", args[0])}
	}

	env := &commandEnv{stdin: stdin, stdout: stdout, stderr: stderr}
	return cmd.run(ctx, env, args[1:])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: agent <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "environment:")
	fmt.Fprintf(w, "  %-22s auth service base URL (default %s)\n", envAuthURL, defaultAuthURL)
	fmt.Fprintf(w, "  %-22s token file (default: user config dir)\n", envTokenFile)
}
