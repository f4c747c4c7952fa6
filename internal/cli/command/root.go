package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
)

// Defaults for the global flags.
const (
	DefaultServer     = "127.0.0.1:6379"
	DefaultHTTPServer = "127.0.0.1:9121"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "respkv-cli",
		Usage:     "respkv command-line client",
		UsageText: "respkv-cli [global options] [command [args...]]",
		Version:   buildinfo.String(),
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			PingCommand(),
			EchoCommand(),
			GetCommand(),
			SetCommand(),
			HealthCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
		Action: rootAction,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "respkv RESP address (host:port or unix:/path)",
			EnvVars: []string{"RESPKV_SERVER"},
			Value:   DefaultServer,
		},
		&cli.StringFlag{
			Name:    "http",
			Usage:   "respkv ops endpoint address for health",
			EnvVars: []string{"RESPKV_HTTP"},
			Value:   DefaultHTTPServer,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: raw, json, yaml",
			Value:   string(output.FormatRaw),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "Per-request timeout",
			Value:   connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	HTTP    string
	Output  output.Format
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:  c.String("server"),
		HTTP:    c.String("http"),
		Output:  output.Format(c.String("output")),
		Timeout: c.Duration("timeout"),
	}
}

// withClient dials the server, runs fn and closes the connection.
func withClient(c *cli.Context, fn func(ctx context.Context, client *connection.Client) error) error {
	flags := ParseGlobalFlags(c)

	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	client, err := connection.Dial(ctx, flags.Server, flags.Timeout)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(ctx, client)
}

// printResult writes data to the app's writer in the selected format.
func printResult(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output).Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
