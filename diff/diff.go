package diff

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/schemalex/pgdelta"
	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/internal/option"
	"github.com/schemalex/pgdelta/internal/util"
	"github.com/schemalex/pgdelta/model"
	"go.uber.org/zap"
)

// ErrNilDatabase is returned when no new database is given
var ErrNilDatabase = errors.New("new database is required")

type schemaFilter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

func compileAnchored(patterns []string) ([]*regexp.Regexp, error) {
	var list []*regexp.Regexp
	for _, pat := range patterns {
		re, err := regexp.Compile(`^(?:` + pat + `)$`)
		if err != nil {
			return nil, errors.Wrapf(err, `invalid schema pattern '%s'`, pat)
		}
		list = append(list, re)
	}
	return list, nil
}

func newSchemaFilter(include, exclude []string) (*schemaFilter, error) {
	inc, err := compileAnchored(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAnchored(exclude)
	if err != nil {
		return nil, err
	}
	return &schemaFilter{include: inc, exclude: exc}, nil
}

func (f *schemaFilter) match(name string) bool {
	included := len(f.include) == 0
	for _, re := range f.include {
		if re.MatchString(name) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, re := range f.exclude {
		if re.MatchString(name) {
			return false
		}
	}
	return true
}

// Databases writes the statements needed to bring a database in the
// `from` state to the `to` state. `from` may be nil, in which case
// every schema of `to` is treated as new.
//
// For each schema of `to`, every category is diffed in the order given
// by model.Categories. Schemas missing from `from` are diffed against
// an absent baseline.
func Databases(dst io.Writer, from, to model.Database, options ...Option) error {
	if to == nil {
		return ErrNilDatabase
	}

	txn := option.Lookup(options, optkeyTransaction, false)
	ignored := option.Lookup(options, optkeyIgnoredStatements, false)
	charset := option.Lookup(options, optkeyOutputCharset, "")
	logger := option.Lookup[*zap.Logger](options, optkeyLogger, nil)
	if logger == nil {
		logger = zap.NewNop()
	}

	filter, err := newSchemaFilter(
		option.Collect[string](options, optkeySchema),
		option.Collect[string](options, optkeyExcludeSchema),
	)
	if err != nil {
		return errors.Wrap(err, `failed to build schema filter`)
	}

	var buf bytes.Buffer
	if txn {
		buf.WriteString("START TRANSACTION;\n")
	}

	schemas := to.Schemas()
	setSearchPath := len(schemas) > 1 || (len(schemas) == 1 && schemas[0].Name() != model.DefaultSchemaName)
	for _, s := range schemas {
		name := s.Name()
		if !filter.match(name) {
			logger.Debug("skipping schema", zap.String("schema", name))
			continue
		}

		old := Absent()
		if from != nil {
			if prev, ok := from.LookupSchema(name); ok {
				old = Present(prev)
			}
		}
		logger.Debug("diffing schema",
			zap.String("schema", name),
			zap.Bool("baseline", old.IsPresent()),
			zap.Int("statements", s.Len()),
		)

		var sbuf bytes.Buffer
		for _, c := range model.Categories() {
			before := sbuf.Len()
			if err := Category(&sbuf, c, old, s); err != nil {
				return errors.Wrapf(err, `failed to diff %s statements of schema '%s'`, c, name)
			}
			if n := sbuf.Len() - before; n > 0 {
				logger.Debug("category changed",
					zap.String("schema", name),
					zap.Stringer("category", c),
					zap.Int("bytes", n),
				)
			}
		}

		if sbuf.Len() == 0 {
			continue
		}
		if setSearchPath {
			buf.WriteString("\nSET search_path = ")
			buf.WriteString(util.QuoteIdent(name))
			buf.WriteString(", pg_catalog;\n")
		}
		sbuf.WriteTo(&buf)
	}

	if txn {
		buf.WriteString("\nCOMMIT TRANSACTION;\n")
	}

	if ignored {
		if from != nil {
			writeIgnored(&buf, "Original database ignored statements", from.IgnoredStatements())
		}
		writeIgnored(&buf, "New database ignored statements", to.IgnoredStatements())
	}

	out, err := encode(buf.Bytes(), charset)
	if err != nil {
		return errors.Wrap(err, `failed to encode diff`)
	}
	if _, err := dst.Write(out); err != nil {
		return errors.Wrap(err, `failed to write diff`)
	}
	return nil
}

func writeIgnored(buf *bytes.Buffer, title string, stmts []string) {
	if len(stmts) == 0 {
		return
	}
	buf.WriteString("\n/* ")
	buf.WriteString(title)
	buf.WriteByte('\n')
	for _, stmt := range stmts {
		buf.WriteByte('\n')
		buf.WriteString(stmt)
		buf.WriteByte('\n')
	}
	buf.WriteString("*/\n")
}

// IgnoredDelta returns a unified diff of the statements ignored while
// parsing each database, or an empty string if both ignored the same
// statements.
func IgnoredDelta(from, to model.Database) (string, error) {
	var a, b []string
	if from != nil {
		a = from.IgnoredStatements()
	}
	if to != nil {
		b = to.IgnoredStatements()
	}
	if equalStrings(a, b) {
		return "", nil
	}

	s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(a),
		B:        lines(b),
		FromFile: "old",
		ToFile:   "new",
		Context:  0,
	})
	if err != nil {
		return "", errors.Wrap(err, `failed to diff ignored statements`)
	}
	return s, nil
}

func lines(stmts []string) []string {
	list := make([]string, 0, len(stmts))
	for _, s := range stmts {
		list = append(list, strings.TrimRight(s, "\n")+"\n")
	}
	return list
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func parser(options []Option) *pgdelta.Parser {
	if p := option.Lookup[*pgdelta.Parser](options, optkeyParser, nil); p != nil {
		return p
	}
	return pgdelta.New()
}

// Strings parses the two schema definitions and writes their diff
func Strings(dst io.Writer, from, to string, options ...Option) error {
	p := parser(options)

	db1, err := p.ParseString(from)
	if err != nil {
		return errors.Wrapf(err, `failed to parse "from" %s`, from)
	}

	db2, err := p.ParseString(to)
	if err != nil {
		return errors.Wrapf(err, `failed to parse "to" %s`, to)
	}

	return Databases(dst, db1, db2, options...)
}

// Files parses the two schema definition files and writes their diff
func Files(dst io.Writer, from, to string, options ...Option) error {
	p := parser(options)

	db1, err := p.ParseFile(from)
	if err != nil {
		return errors.Wrapf(err, `failed to open "from" file %s`, from)
	}

	db2, err := p.ParseFile(to)
	if err != nil {
		return errors.Wrapf(err, `failed to open "to" file %s`, to)
	}

	return Databases(dst, db1, db2, options...)
}

// Sources retrieves the schema definitions from the two sources and
// writes their diff
func Sources(dst io.Writer, from, to pgdelta.SchemaSource, options ...Option) error {
	p := parser(options)

	db1, err := p.ParseSource(from)
	if err != nil {
		return errors.Wrap(err, `failed to parse "from" source`)
	}

	db2, err := p.ParseSource(to)
	if err != nil {
		return errors.Wrap(err, `failed to parse "to" source`)
	}

	return Databases(dst, db1, db2, options...)
}
