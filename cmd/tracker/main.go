// Command tracker is the terminal dashboard for the expense tracker API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dan9191/finance-tracker/internal/client"
	"github.com/Dan9191/finance-tracker/internal/dashboard"
	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
)

// Globals holds options shared by every command
type Globals struct {
	API       string `help:"Base URL of the tracker API." env:"TRACKER_API" default:"http://localhost:5000"`
	TokenFile string `help:"Where the login token is cached (default: <config dir>/tracker/token)." env:"TRACKER_TOKEN_FILE" type:"path"`
	NoColor   bool   `help:"Disable colored chart output." env:"NO_COLOR"`
}

var cli struct {
	Globals `embed:""`

	Register registerCmd `cmd:"" help:"Create an account and log in."`
	Login    loginCmd    `cmd:"" help:"Log in and cache the token."`
	Logout   logoutCmd   `cmd:"" help:"Forget the cached token."`
	List     listCmd     `cmd:"" default:"1" help:"Show transactions, totals and charts."`
	Add      addCmd      `cmd:"" help:"Record a transaction."`
	Delete   deleteCmd   `cmd:"" help:"Delete one transaction by id."`
	Reset    resetCmd    `cmd:"" help:"Delete all transactions."`
	Summary  summaryCmd  `cmd:"" help:"Show the server-side summary."`
	Export   exportCmd   `cmd:"" help:"Download transactions as csv, xlsx or xml."`
}

// app is passed to every command's Run method
type app struct {
	ctx      context.Context
	api      *client.Client
	board    *dashboard.Dashboard
	tokens   dashboard.TokenStore
	renderer dashboard.Renderer
	out      io.Writer
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("tracker"),
		kong.Description("Personal income and expense tracker."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cli.Globals, os.Stdout)
	kctx.FatalIfErrorf(err)
	err = kctx.Run(a)
	kctx.FatalIfErrorf(describe(err))
}

func newApp(ctx context.Context, g Globals, out *os.File) (*app, error) {
	path := g.TokenFile
	if path == "" {
		var err error
		if path, err = dashboard.DefaultTokenPath(); err != nil {
			return nil, err
		}
	}
	tokens := dashboard.NewFileTokenStore(path)
	api := client.New(g.API, nil)
	board, err := dashboard.New(api, tokens)
	if err != nil {
		return nil, err
	}

	color := !g.NoColor && (isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()))
	return &app{
		ctx:      ctx,
		api:      api,
		board:    board,
		tokens:   tokens,
		renderer: dashboard.Renderer{Color: color},
		out:      out,
	}, nil
}

// render re-fetches if needed and prints the dashboard
func (a *app) render() error {
	if a.board.State() == dashboard.Loading {
		if err := a.board.Load(a.ctx); err != nil {
			return err
		}
	}
	return a.renderer.Render(a.out, a.board.View())
}

// expireOnAuthError clears the cached token when err says it is no longer valid
func (a *app) expireOnAuthError(err error) error {
	if errors.Is(err, client.ErrUnauthenticated) {
		a.tokens.Clear()
	}
	return err
}

func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrUnauthenticated), errors.Is(err, dashboard.ErrNotReady):
		return fmt.Errorf("%w; run `tracker login`", err)
	case errors.Is(err, client.ErrUnreachable):
		return fmt.Errorf("cannot reach the tracker API: %w", err)
	default:
		return err
	}
}
