package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/slogx"
)

const (
	envAuthURL     = "SEARCHLAB_AUTH_URL"
	envTokenFile   = "SEARCHLAB_TOKEN_FILE"
	defaultAuthURL = "http://localhost:8080"

	// exitAuthRequired is returned by token --non-blocking when a human has
	// to approve the agent first.
	exitAuthRequired = 3
)

type commandEnv struct {
	stdin          io.Reader
	stdout, stderr io.Writer
}

type command struct {
	summary string
	run     func(ctx context.Context, env *commandEnv, args []string) error
}

var commands = map[string]command{
	"login":   {"log in through the device flow and wait for approval", runLogin},
	"token":   {"print a valid access token", runToken},
	"approve": {"approve a pending device with your username and password", runApprove},
	"whoami":  {"show the user behind the current token", runWhoAmI},
	"logout":  {"revoke the refresh token and delete local tokens", runLogout},
}

var commandOrder = []string{"login", "token", "approve", "whoami", "logout"}

// connFlags are shared by every command.
type connFlags struct {
	authURL   string
	tokenFile string
	verbose   bool
}

func (c *connFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&c.authURL, "auth-url", envOr(envAuthURL, defaultAuthURL), "auth service base URL")
	fs.StringVar(&c.tokenFile, "token-file", os.Getenv(envTokenFile), "token file path (default: user config dir)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log refreshes and polling to stderr")
}

func (c *connFlags) client() *authsdk.SDKClient {
	client := authsdk.NewSDKClient(c.authURL)
	client.UserAgent = "searchlab-agent"
	return client
}

func (c *connFlags) agent(env *commandEnv) (*authsdk.Agent, error) {
	path := c.tokenFile
	if path == "" {
		p, err := authsdk.DefaultTokenPath()
		if err != nil {
			return nil, fmt.Errorf("resolve token path: %w", err)
		}
		path = p
	}
	agent := authsdk.NewAgent(c.client(), &authsdk.FileTokenStore{Path: path})
	if c.verbose {
		agent.Logger = slogx.NewLogger(slogx.Config{
			Service: "agent",
			Level:   "debug",
			Format:  "text",
			Output:  env.stderr,
		})
	}
	return agent, nil
}

func newFlagSet(name string, env *commandEnv) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

// parse handles --help the way the standard flag package does.
func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return &exitError{code: 0, err: errors.New("")}
		}
		return &exitError{code: 2, err: err}
	}
	if fs.NArg() > 0 {
		return &exitError{code: 2, err: fmt.Errorf("unexpected argument: %s", fs.Arg(0))}
	}
	return nil
}

func runLogin(ctx context.Context, env *commandEnv, args []string) error {
	var conn connFlags
	fs := newFlagSet("login", env)
	conn.add(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	agent, err := conn.agent(env)
	if err != nil {
		return err
	}
	agent.OnPrompt = func(e *authsdk.AuthRequiredError) {
		fmt.Fprintln(env.stderr, e.Error())
		fmt.Fprintln(env.stderr, "waiting for approval...")
	}

	if _, err := agent.EnsureToken(ctx, false); err != nil {
		return err
	}
	fmt.Fprintf(env.stderr, "logged in (scope: %s)\n", agent.Scope())
	return nil
}

func runToken(ctx context.Context, env *commandEnv, args []string) error {
	var conn connFlags
	var nonBlocking bool
	fs := newFlagSet("token", env)
	conn.add(fs)
	fs.BoolVar(&nonBlocking, "non-blocking", false, "print approval instructions and exit instead of waiting")
	if err := parse(fs, args); err != nil {
		return err
	}

	agent, err := conn.agent(env)
	if err != nil {
		return err
	}
	if !nonBlocking {
		agent.OnPrompt = func(e *authsdk.AuthRequiredError) {
			fmt.Fprintln(env.stderr, e.Error())
		}
	}

	tok, err := agent.EnsureToken(ctx, nonBlocking)
	var authErr *authsdk.AuthRequiredError
	if errors.As(err, &authErr) {
		return &exitError{code: exitAuthRequired, err: authErr}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, tok)
	return nil
}

func runApprove(ctx context.Context, env *commandEnv, args []string) error {
	var conn connFlags
	var code, user, passwordFile string
	fs := newFlagSet("approve", env)
	conn.add(fs)
	fs.StringVar(&code, "code", "", "user code shown by the waiting agent")
	fs.StringVar(&user, "user", "", "your username")
	fs.StringVar(&passwordFile, "password-file", "", "read the password from this file, or - for stdin (default: prompt)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(user) == "" {
		return &exitError{code: 2, err: errors.New("--code and --user are required")}
	}

	password, err := readPassword(env, passwordFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err = conn.client().AuthorizeDevice(ctx, authsdk.DeviceAuthorizeRequest{
		UserCode: code,
		Username: user,
		Password: password,
	})
	switch {
	case errors.Is(err, authsdk.ErrAccessDenied):
		return errors.New("approval failed: invalid code or credentials")
	case errors.Is(err, authsdk.ErrAlreadyAuthorized):
		fmt.Fprintln(env.stderr, "code was already approved")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(env.stderr, "device approved")
	return nil
}

func runWhoAmI(ctx context.Context, env *commandEnv, args []string) error {
	var conn connFlags
	fs := newFlagSet("whoami", env)
	conn.add(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	agent, err := conn.agent(env)
	if err != nil {
		return err
	}
	info, err := agent.UserInfo(ctx)
	var authErr *authsdk.AuthRequiredError
	if errors.As(err, &authErr) {
		return &exitError{code: exitAuthRequired, err: authErr}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "%s (%s)\nscopes: %s\n", info.Username, info.UserID, strings.Join(info.Scopes, " "))
	return nil
}

func runLogout(ctx context.Context, env *commandEnv, args []string) error {
	var conn connFlags
	fs := newFlagSet("logout", env)
	conn.add(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	agent, err := conn.agent(env)
	if err != nil {
		return err
	}
	if err := agent.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(env.stderr, "logged out")
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
