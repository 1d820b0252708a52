package pgdelta

import (
	"bytes"
	"os"
	"strings"

	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/model"
)

// Parser turns schema definitions into model.Database snapshots.
// It does not validate statements; it only recognizes enough of each
// one to decide which schema and category it belongs to.
type Parser struct{}

// New creates a new Parser
func New() *Parser {
	return &Parser{}
}

type parseCtx struct {
	input  string
	file   string
	db     model.Database
	schema model.Schema
}

// statement is one statement of the input. text is its canonical form:
// comments dropped, whitespace runs collapsed to a single space, and
// terminated by a semicolon.
type statement struct {
	tokens []Token
	text   string
}

// Parse parses the given schema definition
func (p *Parser) Parse(src []byte) (model.Database, error) {
	return p.parse(string(src), "")
}

// ParseString parses the given schema definition
func (p *Parser) ParseString(src string) (model.Database, error) {
	return p.parse(src, "")
}

// ParseFile parses the schema definition stored in the given file
func (p *Parser) ParseFile(fn string) (model.Database, error) {
	src, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, `failed to open file %s`, fn)
	}
	return p.parse(string(src), fn)
}

// ParseSource parses the schema definition provided by the given source
func (p *Parser) ParseSource(src SchemaSource) (model.Database, error) {
	var buf bytes.Buffer
	if err := src.WriteSchema(&buf); err != nil {
		return nil, errors.Wrap(err, `failed to read from source`)
	}
	return p.Parse(buf.Bytes())
}

func (p *Parser) parse(input, file string) (model.Database, error) {
	ctx := &parseCtx{
		input: input,
		file:  file,
		db:    model.NewDatabase(),
	}
	ctx.schema = ctx.db.Schema(model.DefaultSchemaName)

	stmts, err := split(ctx)
	if err != nil {
		return nil, err
	}

	for _, stmt := range stmts {
		if err := ctx.dispatch(stmt); err != nil {
			if errors.IsIgnorable(err) {
				ctx.db.AddIgnoredStatement(stmt.text)
				continue
			}
			return nil, errors.Wrap(err, `failed to parse statement`)
		}
	}
	return ctx.db, nil
}

// SplitStatements splits a script into its statements, each in
// canonical form
func SplitStatements(src string) ([]string, error) {
	stmts, err := split(&parseCtx{input: src})
	if err != nil {
		return nil, err
	}
	list := make([]string, len(stmts))
	for i, stmt := range stmts {
		list[i] = stmt.text
	}
	return list, nil
}

func split(ctx *parseCtx) ([]*statement, error) {
	l := newLexer(ctx.input)

	var list []*statement
	var cur []Token
	var buf strings.Builder
	var parens, blocks int
	var space, opening bool

	flush := func() {
		if len(cur) > 0 {
			buf.WriteByte(';')
			list = append(list, &statement{tokens: cur, text: buf.String()})
		}
		cur = nil
		buf.Reset()
		parens, blocks = 0, 0
		space, opening = false, false
	}

	for {
		t := l.read()

		// a BEGIN only opens a body when a statement word follows it
		body := opening
		if t.Type != SPACE && t.Type != COMMENT {
			opening = false
		}

		switch t.Type {
		case ILLEGAL:
			return nil, newParseError(ctx, t, illegalMessage(t))
		case EOF:
			flush()
			return list, nil
		case SPACE, COMMENT:
			space = true
			continue
		case SEMICOLON:
			if parens == 0 && blocks == 0 {
				flush()
				continue
			}
		case LPAREN:
			parens++
		case RPAREN:
			if parens > 0 {
				parens--
			}
		case IDENT:
			// BEGIN ... END bodies (triggers read back from SQLite,
			// BEGIN ATOMIC functions) contain semicolons of their own.
			// Elsewhere begin is an ordinary word, such as a column name.
			word := strings.ToUpper(t.Value)
			if body && word != "ON" && word != "OR" {
				blocks++
			}
			switch word {
			case "BEGIN":
				opening = parens == 0 && blocks == 0 && routine(cur)
			case "CASE":
				if blocks > 0 {
					blocks++
				}
			case "END":
				if blocks > 0 {
					blocks--
				}
			}
		}

		if space && len(cur) > 0 {
			buf.WriteByte(' ')
		}
		space = false
		buf.WriteString(t.Value)
		cur = append(cur, t)
	}
}

// routine reports whether tokens start a CREATE statement for a
// trigger, function or procedure, the only statements with a body
func routine(tokens []Token) bool {
	var i int
	accept := func(words ...string) bool {
		if i >= len(tokens) || tokens[i].Type != IDENT {
			return false
		}
		for _, w := range words {
			if strings.EqualFold(tokens[i].Value, w) {
				i++
				return true
			}
		}
		return false
	}

	if !accept("CREATE") {
		return false
	}
	if accept("OR") && !accept("REPLACE") {
		return false
	}
	accept("TEMP", "TEMPORARY")
	accept("CONSTRAINT")
	return accept("TRIGGER", "FUNCTION", "PROCEDURE")
}

func illegalMessage(t Token) string {
	if t.Value == "" {
		return "illegal character"
	}
	switch t.Value[0] {
	case '\'', 'E', 'e':
		return "unterminated quoted string"
	case '"', '`':
		return "unterminated quoted identifier"
	case '$':
		return "unterminated dollar-quoted string"
	case '/':
		return "unterminated comment"
	default:
		return "illegal character"
	}
}

type subParser func(*parseCtx, *statement) (bool, error)

var subParsers = []subParser{
	parseSet,
	parseCreateSchema,
	parseAlterSchema,
	parseCreateExtension,
	parseCreate,
	parseAlter,
	parseComment,
	parseGrant,
	parseRevoke,
	parseSkipped,
}

func (ctx *parseCtx) dispatch(stmt *statement) error {
	for _, sp := range subParsers {
		ok, err := sp(ctx, stmt)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return errors.Ignorable(errors.New(`unsupported statement`))
}

func (ctx *parseCtx) errorf(stmt *statement, i int, msg string, args ...interface{}) error {
	t := Token{Pos: len(ctx.input), EOF: true}
	if i < len(stmt.tokens) {
		t = stmt.tokens[i]
	} else if n := len(stmt.tokens); n > 0 {
		last := stmt.tokens[n-1]
		t = Token{Pos: last.Pos, Value: last.Value}
	}
	return newParseError(ctx, t, msg, args...)
}

// qualified returns the schema an object named by parts belongs to.
// n is the number of trailing parts that name the object itself: 1
// for a table, 2 for a table column.
func (ctx *parseCtx) qualified(parts []string, n int) model.Schema {
	if len(parts) > n {
		return ctx.db.Schema(parts[len(parts)-n-1])
	}
	return ctx.schema
}

// keyword returns true if the tokens starting at i are the given
// unquoted words, compared case-insensitively
func (s *statement) keyword(i int, words ...string) bool {
	if i < 0 || i+len(words) > len(s.tokens) {
		return false
	}
	for j, w := range words {
		t := s.tokens[i+j]
		if t.Type != IDENT || !strings.EqualFold(t.Value, w) {
			return false
		}
	}
	return true
}

// optional skips the given words if they are found at i
func (s *statement) optional(i int, words ...string) int {
	if s.keyword(i, words...) {
		return i + len(words)
	}
	return i
}

// scan returns the index of the first occurrence of word at or after i,
// or -1
func (s *statement) scan(i int, word string) int {
	for ; i >= 0 && i < len(s.tokens); i++ {
		if s.keyword(i, word) {
			return i
		}
	}
	return -1
}

// objectName reads a possibly qualified name starting at i, returning
// its parts and the index of the token following it
func (s *statement) objectName(i int) ([]string, int, bool) {
	var parts []string
	for {
		if i < 0 || i >= len(s.tokens) {
			return nil, i, false
		}
		t := s.tokens[i]
		if t.Type != IDENT && t.Type != QUOTED_IDENT {
			return nil, i, false
		}
		parts = append(parts, identName(t))
		i++
		if i < len(s.tokens) && s.tokens[i].Type == DOT {
			i++
			continue
		}
		return parts, i, true
	}
}

// identName returns the name an identifier token refers to. Unquoted
// identifiers fold to lower case, as the server does.
func identName(t Token) string {
	if t.Type == QUOTED_IDENT {
		q := t.Value[:1]
		return strings.ReplaceAll(t.Value[1:len(t.Value)-1], q+q, q)
	}
	return strings.ToLower(t.Value)
}

func parseSet(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "SET") {
		return false, nil
	}

	i := stmt.optional(1, "SESSION")
	i = stmt.optional(i, "LOCAL")
	if !stmt.keyword(i, "search_path") {
		// other session settings do not affect the schema
		return true, nil
	}
	i++
	if i < len(stmt.tokens) && stmt.tokens[i].Type == EQUAL {
		i++
	} else {
		i = stmt.optional(i, "TO")
	}

	if i < len(stmt.tokens) && stmt.tokens[i].Type == STRING {
		v := stmt.tokens[i].Value
		if name := strings.ReplaceAll(v[1:len(v)-1], "''", "'"); name != "" {
			ctx.schema = ctx.db.Schema(name)
		}
		return true, nil
	}

	parts, _, ok := stmt.objectName(i)
	if !ok {
		return false, ctx.errorf(stmt, i, "expected schema name in search_path")
	}
	ctx.schema = ctx.db.Schema(parts[0])
	return true, nil
}

func parseCreateSchema(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "CREATE", "SCHEMA") {
		return false, nil
	}

	i := stmt.optional(2, "IF", "NOT", "EXISTS")
	i = stmt.optional(i, "AUTHORIZATION")
	parts, _, ok := stmt.objectName(i)
	if !ok {
		return false, ctx.errorf(stmt, i, "expected schema name")
	}
	ctx.db.Schema(parts[0]).AddStatement(model.CategorySchema, model.Stmt(stmt.text))
	return true, nil
}

func parseAlterSchema(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "ALTER", "SCHEMA") {
		return false, nil
	}

	parts, _, ok := stmt.objectName(2)
	if !ok {
		return false, ctx.errorf(stmt, 2, "expected schema name")
	}
	ctx.db.Schema(parts[0]).AddStatement(model.CategorySchema, model.Stmt(stmt.text))
	return true, nil
}

func parseCreateExtension(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "CREATE", "EXTENSION") {
		return false, nil
	}

	i := stmt.optional(2, "IF", "NOT", "EXISTS")
	if _, _, ok := stmt.objectName(i); !ok {
		return false, ctx.errorf(stmt, i, "expected extension name")
	}

	// extensions are database wide. They stay with the schema current at
	// the point of creation, even when installed WITH SCHEMA pg_catalog.
	ctx.schema.AddStatement(model.CategoryExtension, model.Stmt(stmt.text))
	return true, nil
}

var createModifiers = []string{
	"GLOBAL", "LOCAL", "TEMP", "TEMPORARY", "UNLOGGED", "UNIQUE",
	"RECURSIVE", "MATERIALIZED", "FOREIGN", "CONSTRAINT", "TRUSTED",
	"PROCEDURAL", "DEFAULT",
}

var createCategories = map[string]model.Category{
	"TABLE":     model.CategoryTable,
	"SEQUENCE":  model.CategorySequence,
	"VIEW":      model.CategoryView,
	"FUNCTION":  model.CategoryFunction,
	"PROCEDURE": model.CategoryFunction,
	"AGGREGATE": model.CategoryFunction,
	"TYPE":      model.CategoryType,
	"DOMAIN":    model.CategoryType,
}

func parseCreate(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "CREATE") {
		return false, nil
	}

	i := stmt.optional(1, "OR", "REPLACE")
MODIFIERS:
	for {
		for _, m := range createModifiers {
			if stmt.keyword(i, m) {
				i++
				continue MODIFIERS
			}
		}
		break
	}
	if i >= len(stmt.tokens) || stmt.tokens[i].Type != IDENT {
		return false, nil
	}

	kind := strings.ToUpper(stmt.tokens[i].Value)
	i++

	var c model.Category
	var table int
	switch kind {
	case "INDEX":
		c = model.CategoryIndex
		i = stmt.optional(i, "CONCURRENTLY")
		table = stmt.scan(i, "ON")
		if table >= 0 {
			table = stmt.optional(table+1, "ONLY")
		}
	case "TRIGGER":
		c = model.CategoryTrigger
		table = stmt.scan(i, "ON")
		if table >= 0 {
			table++
		}
	case "POLICY":
		c = model.CategoryPolicy
		table = stmt.scan(i, "ON")
		if table >= 0 {
			table++
		}
	case "RULE":
		c = model.CategoryRule
		table = stmt.scan(stmt.scan(i, "ON"), "TO")
		if table >= 0 {
			table++
		}
	default:
		var ok bool
		if c, ok = createCategories[kind]; !ok {
			return false, nil
		}
		table = stmt.optional(i, "IF", "NOT", "EXISTS")
	}

	if table < 0 {
		return false, ctx.errorf(stmt, len(stmt.tokens), "expected ON clause in CREATE %s", kind)
	}
	parts, _, ok := stmt.objectName(table)
	if !ok {
		return false, ctx.errorf(stmt, table, "expected object name in CREATE %s", kind)
	}
	ctx.qualified(parts, 1).AddStatement(c, model.Stmt(stmt.text))
	return true, nil
}

var alterKinds = [][]string{
	{"MATERIALIZED", "VIEW"},
	{"FOREIGN", "TABLE"},
	{"TABLE"},
	{"SEQUENCE"},
	{"VIEW"},
	{"FUNCTION"},
	{"PROCEDURE"},
	{"AGGREGATE"},
	{"TYPE"},
	{"DOMAIN"},
	{"INDEX"},
}

func parseAlter(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "ALTER") {
		return false, nil
	}

	for _, kind := range alterKinds {
		if !stmt.keyword(1, kind...) {
			continue
		}

		i := stmt.optional(1+len(kind), "IF", "EXISTS")
		i = stmt.optional(i, "ONLY")
		parts, next, ok := stmt.objectName(i)
		if !ok {
			return false, ctx.errorf(stmt, i, "expected object name in ALTER %s", strings.Join(kind, " "))
		}

		c := model.CategoryAlter
		for j := stmt.scan(next, "ADD"); j >= 0; j = stmt.scan(j+1, "ADD") {
			if stmt.keyword(j+1, "CONSTRAINT") {
				c = model.CategoryConstraint
				break
			}
		}
		ctx.qualified(parts, 1).AddStatement(c, model.Stmt(stmt.text))
		return true, nil
	}
	return false, nil
}

var commentKinds = [][]string{
	{"MATERIALIZED", "VIEW"},
	{"FOREIGN", "TABLE"},
	{"TABLE"},
	{"VIEW"},
	{"SEQUENCE"},
	{"INDEX"},
	{"FUNCTION"},
	{"PROCEDURE"},
	{"AGGREGATE"},
	{"TYPE"},
	{"DOMAIN"},
}

func parseComment(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "COMMENT", "ON") {
		return false, nil
	}

	target := ctx.schema
	switch {
	case stmt.keyword(2, "SCHEMA"):
		parts, _, ok := stmt.objectName(3)
		if !ok {
			return false, ctx.errorf(stmt, 3, "expected schema name")
		}
		target = ctx.db.Schema(parts[0])
	case stmt.keyword(2, "COLUMN"):
		parts, _, ok := stmt.objectName(3)
		if !ok {
			return false, ctx.errorf(stmt, 3, "expected column name")
		}
		target = ctx.qualified(parts, 2)
	case stmt.keyword(2, "CONSTRAINT"), stmt.keyword(2, "TRIGGER"), stmt.keyword(2, "POLICY"), stmt.keyword(2, "RULE"):
		i := stmt.scan(3, "ON")
		if i < 0 {
			return false, ctx.errorf(stmt, len(stmt.tokens), "expected ON clause")
		}
		i = stmt.optional(i+1, "DOMAIN")
		parts, _, ok := stmt.objectName(i)
		if !ok {
			return false, ctx.errorf(stmt, i, "expected object name")
		}
		target = ctx.qualified(parts, 1)
	default:
		for _, kind := range commentKinds {
			if !stmt.keyword(2, kind...) {
				continue
			}
			i := 2 + len(kind)
			parts, _, ok := stmt.objectName(i)
			if !ok {
				return false, ctx.errorf(stmt, i, "expected object name")
			}
			target = ctx.qualified(parts, 1)
			break
		}
	}

	target.AddStatement(model.CategoryComment, model.Stmt(stmt.text))
	return true, nil
}

func parseRevoke(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "REVOKE") {
		return false, nil
	}
	return false, errors.Ignorable(errors.New(`REVOKE is not supported`))
}

var skippedLeaders = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE",
	"BEGIN", "START", "COMMIT", "END", "ROLLBACK",
}

// parseSkipped drops data manipulation and transaction control
// statements without recording them
func parseSkipped(ctx *parseCtx, stmt *statement) (bool, error) {
	for _, w := range skippedLeaders {
		if stmt.keyword(0, w) {
			return true, nil
		}
	}
	return false, nil
}
