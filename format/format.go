package format

import (
	"bytes"
	"io"

	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/internal/option"
	"github.com/schemalex/pgdelta/internal/util"
	"github.com/schemalex/pgdelta/model"
)

// Option is a generic interface for objects that passes
// optional parameters to the various format functions in this package
type Option = option.Option

const optkeyCategoryHeaders = "category-headers"

// WithCategoryHeaders specifies if each group of statements should be
// preceded by a "-- <category>" comment
func WithCategoryHeaders(b bool) Option {
	return option.New(optkeyCategoryHeaders, b)
}

// SQL takes an arbitrary `model.*` object and formats it as SQL,
// writing its result to `dst`
func SQL(dst io.Writer, v interface{}, options ...Option) error {
	switch v := v.(type) {
	case model.Database:
		return FormatDatabase(dst, v, options...)
	case model.Schema:
		return FormatSchema(dst, v, options...)
	case model.Stmts:
		if _, err := v.WriteTo(dst); err != nil {
			return errors.Wrap(err, `failed to write statements`)
		}
		return nil
	case model.Stmt:
		if _, err := io.WriteString(dst, v.String()); err != nil {
			return errors.Wrap(err, `failed to write statement`)
		}
		return nil
	default:
		return errors.Errorf("unsupported model type %T", v)
	}
}

// FormatDatabase writes every schema of the database. Each schema is
// introduced by a search_path statement, unless the database consists
// of the public schema alone.
func FormatDatabase(dst io.Writer, d model.Database, options ...Option) error {
	schemas := d.Schemas()
	setSearchPath := len(schemas) > 1 || (len(schemas) == 1 && schemas[0].Name() != model.DefaultSchemaName)

	var buf bytes.Buffer
	for _, s := range schemas {
		if s.Len() == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		if setSearchPath {
			buf.WriteString("SET search_path = ")
			buf.WriteString(util.QuoteIdent(s.Name()))
			buf.WriteString(", pg_catalog;\n\n")
		}
		if err := FormatSchema(&buf, s, options...); err != nil {
			return err
		}
	}

	if _, err := buf.WriteTo(dst); err != nil {
		return errors.Wrap(err, `failed to write database`)
	}
	return nil
}

// FormatSchema writes the statements of the schema grouped by category,
// with a blank line between groups
func FormatSchema(dst io.Writer, s model.Schema, options ...Option) error {
	headers := option.Lookup(options, optkeyCategoryHeaders, false)

	var buf bytes.Buffer
	for _, c := range model.Categories() {
		stmts := s.Statements(c)
		if len(stmts) == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		if headers {
			buf.WriteString("-- ")
			buf.WriteString(c.String())
			buf.WriteByte('\n')
		}
		stmts.WriteTo(&buf)
	}

	if _, err := buf.WriteTo(dst); err != nil {
		return errors.Wrapf(err, `failed to write schema %s`, s.Name())
	}
	return nil
}
