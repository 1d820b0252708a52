package lint

import (
	"context"
	"io"

	"github.com/schemalex/pgdelta"
	"github.com/schemalex/pgdelta/format"
	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/internal/option"
	"go.uber.org/zap"
)

type Option = pgdelta.Option

const optkeyLogger = "logger"

// Linter re-emits a schema definition in canonical form
type Linter struct {
	logger *zap.Logger
}

// WithCategoryHeaders specifies if each group of statements should be
// preceded by a "-- <category>" comment
func WithCategoryHeaders(b bool) Option {
	return format.WithCategoryHeaders(b)
}

// WithLogger specifies the logger ignored statements are reported to
func WithLogger(l *zap.Logger) Option {
	return option.New(optkeyLogger, l)
}

// New creates a Linter
func New(options ...Option) *Linter {
	logger := option.Lookup[*zap.Logger](options, optkeyLogger, nil)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Linter{logger: logger}
}

// Run parses the schema from src and writes it back to dst. Statements
// the parser does not model are dropped and reported to the logger.
func (l *Linter) Run(ctx context.Context, src pgdelta.SchemaSource, dst io.Writer, options ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db, err := pgdelta.New().ParseSource(src)
	if err != nil {
		return errors.Wrap(err, `failed to parse source`)
	}

	for _, stmt := range db.IgnoredStatements() {
		l.logger.Warn("dropping unsupported statement", zap.String("statement", stmt))
	}

	if err := format.SQL(dst, db, options...); err != nil {
		return errors.Wrap(err, `failed to format source`)
	}
	return nil
}
