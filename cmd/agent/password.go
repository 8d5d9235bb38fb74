package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword reads from passwordFile, from stdin when it is "-", or
// prompts on the terminal with echo disabled.
func readPassword(env *commandEnv, passwordFile string) (string, error) {
	switch passwordFile {
	case "":
		return promptPassword(env)
	case "-":
		return readFirstLine(env.stdin)
	default:
		f, err := os.Open(passwordFile)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		defer f.Close()
		return readFirstLine(f)
	}
}

func promptPassword(env *commandEnv) (string, error) {
	f, ok := env.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no terminal available for password prompt (use --password-file)")
	}

	fmt.Fprint(env.stderr, "Password: ")
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(env.stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("empty password")
	}
	return string(b), nil
}

// readFirstLine strips the trailing newline that echo and most editors add.
func readFirstLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
