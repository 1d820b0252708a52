package main

import (
	"context"
	"io"

	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/lint"
	"github.com/urfave/cli/v3"
)

func lintCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "print a schema in canonical form",
		ArgsUsage: "source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output the result to the specified file (default: stdout)",
			},
			&cli.BoolFlag{
				Name:  "headers",
				Usage: "precede each group of statements with its category",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("wrong number of arguments: expected source")
			}

			_, logger, err := settings(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			srcs, err := sources(cmd)
			if err != nil {
				return err
			}

			dst, closer, err := output(cmd, stdout)
			if err != nil {
				return err
			}
			defer closer()

			return lint.New(lint.WithLogger(logger)).Run(ctx, srcs[0], dst, lint.WithCategoryHeaders(cmd.Bool("headers")))
		},
	}
}
