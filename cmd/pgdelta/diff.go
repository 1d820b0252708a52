package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schemalex/pgdelta"
	"github.com/schemalex/pgdelta/diff"
	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/urfave/cli/v3"
)

func diffCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "print the statements missing from before that after defines",
		ArgsUsage: "before after",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output the result to the specified file (default: stdout)",
			},
			&cli.BoolFlag{
				Name:    "transaction",
				Aliases: []string{"t"},
				Usage:   "wrap the output in a transaction",
				Value:   true,
			},
			&cli.StringSliceFlag{
				Name:  "schema",
				Usage: "only diff schemas matching the regular expression",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-schema",
				Usage: "skip schemas matching the regular expression",
			},
			&cli.BoolFlag{
				Name:  "ignored",
				Usage: "append the statements that were not understood as comments",
			},
			&cli.BoolFlag{
				Name:  "ignored-diff",
				Usage: "print a diff of the statements that were not understood to stderr",
			},
			&cli.StringFlag{
				Name:  "charset",
				Usage: "character set of the output",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runDiff(cmd, stdout, stderr)
		},
	}
}

func runDiff(cmd *cli.Command, stdout, stderr io.Writer) error {
	if cmd.Args().Len() != 2 {
		return errors.New("wrong number of arguments: expected before and after")
	}

	cfg, logger, err := settings(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cmd.IsSet("transaction") {
		cfg.Transaction = cmd.Bool("transaction")
	}
	if cmd.IsSet("schema") {
		cfg.Schemas = cmd.StringSlice("schema")
	}
	if cmd.IsSet("exclude-schema") {
		cfg.ExcludeSchemas = cmd.StringSlice("exclude-schema")
	}
	if cmd.IsSet("ignored") {
		cfg.Ignored = cmd.Bool("ignored")
	}
	if cmd.IsSet("charset") {
		cfg.Charset = cmd.String("charset")
	}

	srcs, err := sources(cmd)
	if err != nil {
		return err
	}

	p := pgdelta.New()
	from, err := p.ParseSource(srcs[0])
	if err != nil {
		return errors.Wrap(err, `failed to parse "before"`)
	}
	to, err := p.ParseSource(srcs[1])
	if err != nil {
		return errors.Wrap(err, `failed to parse "after"`)
	}

	options := []diff.Option{
		diff.WithTransaction(cfg.Transaction),
		diff.WithIgnoredStatements(cfg.Ignored),
		diff.WithOutputCharset(cfg.Charset),
		diff.WithLogger(logger),
	}
	for _, s := range cfg.Schemas {
		options = append(options, diff.WithSchema(s))
	}
	for _, s := range cfg.ExcludeSchemas {
		options = append(options, diff.WithExcludeSchema(s))
	}

	dst, closer, err := output(cmd, stdout)
	if err != nil {
		return err
	}
	defer closer()

	if err := diff.Databases(dst, from, to, options...); err != nil {
		return err
	}

	if cmd.Bool("ignored-diff") {
		delta, err := diff.IgnoredDelta(from, to)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(stderr, colorize(stderr, delta)); err != nil {
			return errors.Wrap(err, `failed to write ignored statement diff`)
		}
	}
	return nil
}

// colorize highlights a unified diff when w is a terminal
func colorize(w io.Writer, delta string) string {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return delta
	}

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)
	header := color.New(color.Bold)
	for _, c := range []*color.Color{added, removed, hunk, header} {
		c.EnableColor()
	}

	lines := strings.SplitAfter(delta, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = header.Sprint(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunk.Sprint(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = added.Sprint(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removed.Sprint(line)
		}
	}
	return strings.Join(lines, "")
}
