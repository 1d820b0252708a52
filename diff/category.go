package diff

import (
	"io"

	"github.com/deckarep/golang-set"
	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/model"
)

// Baseline is the state a category is diffed against: either Absent,
// meaning no prior schema exists at all, or Present with the prior
// schema. An absent baseline is distinct from a present but empty one,
// even though both subtract nothing.
type Baseline struct {
	present bool
	schema  model.Schema
}

// Absent returns the baseline for a schema that did not exist before
func Absent() Baseline {
	return Baseline{}
}

// Present returns the baseline for a schema that already exists
func Present(s model.Schema) Baseline {
	return Baseline{present: true, schema: s}
}

// IsPresent returns true if the baseline holds a prior schema
func (b Baseline) IsPresent() bool {
	return b.present
}

// Schema returns the prior schema, or nil for an absent baseline
func (b Baseline) Schema() model.Schema {
	return b.schema
}

var (
	// ErrNilSchema is returned when no new schema is given
	ErrNilSchema = errors.New("new schema is required")

	// ErrNilBaseline is returned for a baseline built with Present(nil)
	ErrNilBaseline = errors.New("present baseline holds no schema")
)

// Category writes every statement of the given category found in
// the new schema but not in the old one. Each statement is written as
// a blank line followed by the statement text, in the order the new
// schema lists them. Nothing is ever written to undo statements that
// only exist in the old schema.
//
// Statements are compared by their exact text. A statement repeated in
// the new schema is written once per occurrence.
//
// Writes happen as statements are found. The first write error aborts
// the diff and is returned; output already written stays written.
func Category(dst io.Writer, c model.Category, old Baseline, to model.Schema) error {
	return walk(c, old, to, func(stmt model.Stmt) error {
		if _, err := io.WriteString(dst, "\n"+stmt.String()+"\n"); err != nil {
			return errors.Wrapf(err, `failed to write %s statement '%s'`, c, stmt)
		}
		return nil
	})
}

// Grants is Category for model.CategoryGrant
func Grants(dst io.Writer, old Baseline, to model.Schema) error {
	return Category(dst, model.CategoryGrant, old, to)
}

// Added returns the statements Category would write, without the
// separators.
func Added(c model.Category, old Baseline, to model.Schema) (model.Stmts, error) {
	var stmts model.Stmts
	err := walk(c, old, to, func(stmt model.Stmt) error {
		stmts = append(stmts, stmt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stmts, nil
}

func walk(c model.Category, old Baseline, to model.Schema, emit func(model.Stmt) error) error {
	if to == nil {
		return ErrNilSchema
	}

	existing := mapset.NewThreadUnsafeSet()
	if old.IsPresent() {
		if old.Schema() == nil {
			return ErrNilBaseline
		}
		for _, stmt := range old.Schema().Statements(c) {
			existing.Add(stmt)
		}
	}

	for _, stmt := range to.Statements(c) {
		if existing.Contains(stmt) {
			continue
		}
		if err := emit(stmt); err != nil {
			return err
		}
	}
	return nil
}
