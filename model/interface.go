package model

// Stmt is a single statement in its canonical textual form. Two
// statements are the same statement iff their text is byte-identical.
type Stmt string

// Stmts describes an ordered list of statements
type Stmts []Stmt

// Category describes the kind of schema object a statement creates
// or alters.
type Category int

// List of possible categories, in the order their statements are
// emitted by a diff.
const (
	CategoryInvalid Category = iota
	CategorySchema
	CategoryExtension
	CategoryType
	CategorySequence
	CategoryTable
	CategoryFunction
	CategoryAlter
	CategoryConstraint
	CategoryIndex
	CategoryTrigger
	CategoryView
	CategoryRule
	CategoryPolicy
	CategoryGrant
	CategoryComment
	CategoryMax
)

// Schema is an immutable point-in-time snapshot of one schema: per
// category, the ordered statements that define its objects.
//
// Schemas are filled by the parser through AddStatement, and must
// be treated as read-only once handed to anyone else.
type Schema interface {
	// This is a dummy method to differentiate between Schema/Database
	// interfaces when switching on a value's type.
	isSchema() bool

	Name() string

	// Statements returns the statements of the given category, in the
	// order they were added. The returned list must not be modified.
	Statements(Category) Stmts
	Grants() Stmts
	AddStatement(Category, Stmt)

	// Len returns the total number of statements across all categories
	Len() int
}

type schema struct {
	name  string
	stmts map[Category]Stmts
}

// Database represents a whole parsed schema definition: its schemas in
// order of first appearance, and the statements that were seen but not
// modeled.
type Database interface {
	isDatabase() bool

	Schemas() []Schema
	LookupSchema(string) (Schema, bool)

	// Schema returns the schema with the given name, creating and
	// appending it first if it does not exist yet.
	Schema(string) Schema

	IgnoredStatements() []string
	AddIgnoredStatement(string)
}

type database struct {
	schemas []Schema
	byName  map[string]Schema
	ignored []string
}
