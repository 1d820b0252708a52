package main

import (
	"context"
	"fmt"
	"io"

	"github.com/schemalex/pgdelta/deploy"
	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/urfave/cli/v3"
)

func deployCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "apply the statements missing from a live database",
		ArgsUsage: "database source",
		Description: `"database" must be a mysql:// or sqlite:// source. When "source" is
a local-git source, the deployed commit is recorded in the database and
deploying the same commit again is a no-op.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "version-table",
				Usage: "table the deployed commit is recorded in",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return errors.New("wrong number of arguments: expected database and source")
			}

			cfg, logger, err := settings(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.IsSet("version-table") {
				cfg.VersionTable = cmd.String("version-table")
			}

			srcs, err := sources(cmd)
			if err != nil {
				return err
			}

			err = deploy.Diff(ctx, srcs[0], srcs[1],
				deploy.WithLogger(logger),
				deploy.WithVersionTable(cfg.VersionTable),
			)
			if deploy.IsIdenticalVersionsError(err) {
				fmt.Fprintln(stdout, "schema is up to date")
				return nil
			}
			return err
		},
	}
}
