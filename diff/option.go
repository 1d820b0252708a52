package diff

import (
	"github.com/schemalex/pgdelta"
	"github.com/schemalex/pgdelta/internal/option"
	"go.uber.org/zap"
)

type Option = pgdelta.Option

const (
	optkeyParser            = "parser"
	optkeyTransaction       = "transaction"
	optkeySchema            = "schema"
	optkeyExcludeSchema     = "exclude-schema"
	optkeyIgnoredStatements = "ignored-statements"
	optkeyOutputCharset     = "output-charset"
	optkeyLogger            = "logger"
)

// WithParser specifies the parser instance to use when parsing
// the statements given to the diffing functions. If unspecified,
// a default parser will be used
func WithParser(p *pgdelta.Parser) Option {
	return option.New(optkeyParser, p)
}

// WithTransaction specifies if statements to control transactions
// should be included in the diff.
func WithTransaction(b bool) Option {
	return option.New(optkeyTransaction, b)
}

// WithSchema limits the diff to schemas whose whole name matches the
// given regular expression. May be given multiple times; a schema
// matching any of them is included.
func WithSchema(pattern string) Option {
	return option.New(optkeySchema, pattern)
}

// WithExcludeSchema skips schemas whose whole name matches the given
// regular expression, even when included by WithSchema.
func WithExcludeSchema(pattern string) Option {
	return option.New(optkeyExcludeSchema, pattern)
}

// WithIgnoredStatements specifies if the statements the parser did not
// model should be appended to the diff as comments.
func WithIgnoredStatements(b bool) Option {
	return option.New(optkeyIgnoredStatements, b)
}

// WithOutputCharset specifies the IANA name of the character set the
// diff is written in. Defaults to UTF-8.
func WithOutputCharset(name string) Option {
	return option.New(optkeyOutputCharset, name)
}

// WithLogger specifies the logger to report progress to
func WithLogger(l *zap.Logger) Option {
	return option.New(optkeyLogger, l)
}
