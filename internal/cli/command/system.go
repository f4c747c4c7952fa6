package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
)

// HealthCommand returns the health command, which reads the ops endpoint.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Show server health from the ops endpoint",
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)

			ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
			defer cancel()

			health, err := connection.NewHTTPClient(flags.HTTP, flags.Timeout).Health(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return printResult(c, health)
		},
	}
}

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show client build information",
		Action: func(c *cli.Context) error {
			if ParseGlobalFlags(c).Output == output.FormatRaw {
				_, err := fmt.Fprintln(c.App.Writer, buildinfo.String())
				return err
			}
			return printResult(c, buildinfo.Get())
		},
	}
}
