package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check that the server answers",
		Action: func(c *cli.Context) error { return doAndPrint(c, "PING") },
	}
}

// EchoCommand returns the echo command.
func EchoCommand() *cli.Command {
	return &cli.Command{
		Name:      "echo",
		Usage:     "Echo the arguments joined by spaces",
		ArgsUsage: "<message...>",
		Action: func(c *cli.Context) error {
			return doAndPrint(c, "ECHO", c.Args().Slice()...)
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "<key>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("get takes exactly one key, got %d arguments", c.NArg())
			}
			return doAndPrint(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key to a value, optionally expiring",
		ArgsUsage: "<key> <value>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "ex",
				Usage: "Expire after N seconds",
			},
			&cli.Int64Flag{
				Name:  "px",
				Usage: "Expire after N milliseconds",
			},
		},
		Action: setAction,
	}
}

func setAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("set takes a key and a value, got %d arguments", c.NArg())
	}

	exp := connection.Expiry{Seconds: c.Int64("ex"), Millis: c.Int64("px")}
	switch {
	case c.IsSet("ex") && c.IsSet("px"):
		return errors.New("--ex and --px are mutually exclusive")
	case exp.Seconds < 0 || exp.Millis < 0:
		return errors.New("expiry must not be negative")
	}

	args := []string{c.Args().Get(0), c.Args().Get(1)}
	switch {
	case c.IsSet("ex"):
		args = append(args, "EX", fmt.Sprint(exp.Seconds))
	case c.IsSet("px"):
		args = append(args, "PX", fmt.Sprint(exp.Millis))
	}
	return doAndPrint(c, "SET", args...)
}

// doAndPrint sends one command and prints its reply. Error replies are
// printed and returned.
func doAndPrint(c *cli.Context, name string, args ...string) error {
	return withClient(c, func(ctx context.Context, client *connection.Client) error {
		reply, err := client.Do(ctx, name, args...)
		if err != nil && !connection.IsServerError(err) {
			return err
		}
		if perr := printResult(c, reply); perr != nil {
			return perr
		}
		return err
	})
}
