// Package cli implements evalctl, a command-line client for the credeval
// gRPC API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/credeval/internal/client/client"
	"github.com/dmitrijs2005/credeval/internal/client/config"
	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var ErrUsage = errors.New("usage")

type App struct {
	config    *config.Config
	out       io.Writer
	newClient func(addr, token string) (client.Client, error)
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		out:    os.Stdout,
		newClient: func(addr, token string) (client.Client, error) {
			return client.NewGRPCClient(addr, token)
		},
	}
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, c client.Client, args []string) error
}

var commands = map[string]command{
	"submit":     {"submit -country DE [-student ID] [-type T] [-institution I] [-program P] [-doc path[,mimetype[,kind]]]...", (*App).submit},
	"transition": {"transition EVALUATION_ID STATUS [-note TEXT]", (*App).transition},
	"assign":     {"assign EVALUATION_ID EVALUATOR", (*App).assign},
	"history":    {"history EVALUATION_ID", (*App).history},
	"timeline":   {"timeline EVALUATION_ID", (*App).timeline},
	"ingest":     {"ingest DOCUMENT_ID [-async]", (*App).ingest},
	"rules":      {"rules COUNTRY_CODE", (*App).rules},
	"invalidate": {"invalidate COUNTRY_CODE", (*App).invalidate},
}

// Run executes one subcommand. args excludes the global flags.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		a.help()
		return nil
	}

	name, rest := args[0], args[1:]
	if name == "token" {
		return a.token(rest)
	}
	cmd, ok := commands[name]
	if !ok {
		a.help()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}

	token, err := a.accessToken()
	if err != nil {
		return err
	}
	c, err := a.newClient(a.config.ServerEndpointAddr, token)
	if err != nil {
		return err
	}
	defer c.Close()

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	if err := cmd.run(a, ctx, c, rest); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(a.out, "usage: evalctl", cmd.usage)
		}
		return err
	}
	return nil
}

// accessToken uses the configured token or prompts for one without echo.
func (a *App) accessToken() (string, error) {
	if a.config.AccessToken != "" {
		return a.config.AccessToken, nil
	}
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("no access token: set CREDEVAL_TOKEN or pass -token")
	}
	fmt.Fprint(a.out, "Access token: ")
	b, err := readPassword(fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (a *App) help() {
	fmt.Fprintln(a.out, "evalctl [-a host:port] [-token JWT] [-timeout 30s] [-c config.json] COMMAND")
	fmt.Fprintln(a.out, "commands:")
	for _, name := range []string{"submit", "transition", "assign", "history", "timeline", "ingest", "rules", "invalidate"} {
		fmt.Fprintln(a.out, "  "+commands[name].usage)
	}
	fmt.Fprintln(a.out, "  token -actor NAME -role student|evaluator|admin [-ttl 1h]")
}
