package command

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/repl"
)

// rootAction sends unrecognized arguments verbatim, or starts the
// interactive session when there are none.
func rootAction(c *cli.Context) error {
	if c.NArg() > 0 {
		args := c.Args().Slice()
		return doAndPrint(c, args[0], args[1:]...)
	}
	return interactive(c)
}

func interactive(c *cli.Context) error {
	flags := ParseGlobalFlags(c)

	dialCtx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	client, err := connection.Dial(dialCtx, flags.Server, flags.Timeout)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	history := repl.NewHistory(repl.DefaultHistoryPath())
	if err := history.Load(); err != nil {
		PrintError("load history: %v", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			PrintError("save history: %v", err)
		}
	}()

	exec := func(ctx context.Context, args []string) error {
		ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
		defer cancel()

		reply, err := client.Do(ctx, args[0], args[1:]...)
		if err != nil && !connection.IsServerError(err) {
			return err
		}
		return printResult(c, reply)
	}

	r := repl.New(c.App.Reader, c.App.Writer, flags.Server+"> ", exec, history)
	return r.Run(c.Context)
}
