package pgdelta

import (
	"strings"

	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/model"
)

var privilegeNames = []string{
	"ALL", "SELECT", "INSERT", "UPDATE", "DELETE", "TRUNCATE",
	"REFERENCES", "TRIGGER", "USAGE", "CREATE", "CONNECT",
	"TEMPORARY", "TEMP", "EXECUTE", "MAINTAIN",
}

// privileges that may be restricted to a column list
var columnPrivileges = map[string]struct{}{
	"ALL":        {},
	"SELECT":     {},
	"INSERT":     {},
	"UPDATE":     {},
	"REFERENCES": {},
}

// object types in the ON clause, longest first
var grantObjectTypes = [][]string{
	{"ALL", "TABLES", "IN", "SCHEMA"},
	{"ALL", "SEQUENCES", "IN", "SCHEMA"},
	{"ALL", "FUNCTIONS", "IN", "SCHEMA"},
	{"ALL", "PROCEDURES", "IN", "SCHEMA"},
	{"ALL", "ROUTINES", "IN", "SCHEMA"},
	{"FOREIGN", "DATA", "WRAPPER"},
	{"FOREIGN", "SERVER"},
	{"LARGE", "OBJECT"},
	{"TABLE"},
	{"SEQUENCE"},
	{"DATABASE"},
	{"DOMAIN"},
	{"FUNCTION"},
	{"PROCEDURE"},
	{"ROUTINE"},
	{"LANGUAGE"},
	{"SCHEMA"},
	{"TABLESPACE"},
	{"TYPE"},
}

type privilege struct {
	name    string
	columns []string
}

func (p privilege) String() string {
	if len(p.columns) == 0 {
		return p.name
	}
	return p.name + " (" + strings.Join(p.columns, ", ") + ")"
}

type grantObject struct {
	text  string
	parts []string
}

type grant struct {
	privileges  []privilege
	objectType  string
	objects     []grantObject
	roles       []string
	grantOption bool
}

// parseGrant files GRANT statements under the grant category.
//
// Grants on schemas, tables and sequences are expanded into one
// statement per object, privilege and role, so that adding a single
// role to an existing grant yields just the new grant. Grants on other
// objects are kept whole. Grants of role membership are ignored.
func parseGrant(ctx *parseCtx, stmt *statement) (bool, error) {
	if !stmt.keyword(0, "GRANT") {
		return false, nil
	}

	g, complete, err := readGrant(stmt)
	if err != nil {
		return false, err
	}

	switch {
	case !complete:
		ctx.schema.AddStatement(model.CategoryGrant, model.Stmt(stmt.text))
	case g.objectType == "SCHEMA":
		for _, obj := range g.objects {
			target := ctx.db.Schema(obj.parts[len(obj.parts)-1])
			for _, s := range g.expand(obj) {
				target.AddStatement(model.CategoryGrant, s)
			}
		}
	case g.objectType == "TABLE" || g.objectType == "SEQUENCE":
		for _, obj := range g.objects {
			target := ctx.qualified(obj.parts, 1)
			for _, s := range g.expand(obj) {
				target.AddStatement(model.CategoryGrant, s)
			}
		}
	case strings.HasSuffix(g.objectType, " IN SCHEMA"):
		target := ctx.db.Schema(g.objects[0].parts[0])
		target.AddStatement(model.CategoryGrant, model.Stmt(stmt.text))
	default:
		ctx.schema.AddStatement(model.CategoryGrant, model.Stmt(stmt.text))
	}
	return true, nil
}

// readGrant reads the statement into a grant. complete is false when
// the statement uses syntax this reader does not break down, in which
// case the statement should be kept as written.
func readGrant(stmt *statement) (*grant, bool, error) {
	var g grant
	i := 1

	for {
		p, next, ok := readPrivilege(stmt, i)
		if !ok {
			if len(g.privileges) == 0 {
				return nil, false, errors.Ignorable(errors.New(`role membership grants are not supported`))
			}
			return nil, false, nil
		}
		g.privileges = append(g.privileges, p)
		i = next
		if i < len(stmt.tokens) && stmt.tokens[i].Type == COMMA {
			i++
			continue
		}
		break
	}

	if !stmt.keyword(i, "ON") {
		return nil, false, errors.Ignorable(errors.New(`role membership grants are not supported`))
	}
	i++

	g.objectType = "TABLE"
	for _, words := range grantObjectTypes {
		if stmt.keyword(i, words...) {
			g.objectType = strings.Join(words, " ")
			i += len(words)
			break
		}
	}

	for {
		start := i
		parts, next, ok := stmt.objectName(i)
		if !ok {
			return nil, false, nil
		}
		i = next
		// function signatures
		if i < len(stmt.tokens) && stmt.tokens[i].Type == LPAREN {
			if i = skipParens(stmt, i); i < 0 {
				return nil, false, nil
			}
		}
		g.objects = append(g.objects, grantObject{text: joinTokens(stmt.tokens[start:i]), parts: parts})
		if i < len(stmt.tokens) && stmt.tokens[i].Type == COMMA {
			i++
			continue
		}
		break
	}

	if !stmt.keyword(i, "TO") {
		return nil, false, nil
	}
	i++

	for {
		i = stmt.optional(i, "GROUP")
		if i >= len(stmt.tokens) {
			return nil, false, nil
		}
		t := stmt.tokens[i]
		if t.Type != IDENT && t.Type != QUOTED_IDENT {
			return nil, false, nil
		}
		g.roles = append(g.roles, t.Value)
		i++
		if i < len(stmt.tokens) && stmt.tokens[i].Type == COMMA {
			i++
			continue
		}
		break
	}

	if stmt.keyword(i, "WITH", "GRANT", "OPTION") {
		g.grantOption = true
		i += 3
	}

	// GRANTED BY and anything else we do not break down
	if i != len(stmt.tokens) {
		return nil, false, nil
	}
	return &g, true, nil
}

func readPrivilege(stmt *statement, i int) (privilege, int, bool) {
	var p privilege
	for _, name := range privilegeNames {
		if stmt.keyword(i, name) {
			p.name = name
			break
		}
	}
	if p.name == "" {
		return p, i, false
	}
	i++

	if p.name == "ALL" {
		i = stmt.optional(i, "PRIVILEGES")
	}
	if p.name == "TEMP" {
		p.name = "TEMPORARY"
	}

	if _, ok := columnPrivileges[p.name]; ok && i < len(stmt.tokens) && stmt.tokens[i].Type == LPAREN {
		i++
		for {
			if i >= len(stmt.tokens) {
				return p, i, false
			}
			t := stmt.tokens[i]
			if t.Type != IDENT && t.Type != QUOTED_IDENT {
				return p, i, false
			}
			p.columns = append(p.columns, t.Value)
			i++
			if i < len(stmt.tokens) && stmt.tokens[i].Type == COMMA {
				i++
				continue
			}
			if i < len(stmt.tokens) && stmt.tokens[i].Type == RPAREN {
				i++
				break
			}
			return p, i, false
		}
	}
	return p, i, true
}

// skipParens returns the index following the parenthesized group
// starting at i, or -1 if it is not closed
func skipParens(stmt *statement, i int) int {
	depth := 0
	for ; i < len(stmt.tokens); i++ {
		switch stmt.tokens[i].Type {
		case LPAREN:
			depth++
		case RPAREN:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// joinTokens renders tokens compactly, the way object names are
// written: no spaces around dots, one space after commas
func joinTokens(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && t.Type == IDENT && tokens[i-1].Type == IDENT {
			b.WriteByte(' ')
		}
		b.WriteString(t.Value)
		if t.Type == COMMA {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func (g *grant) expand(obj grantObject) model.Stmts {
	var stmts model.Stmts
	for _, p := range g.privileges {
		for _, role := range g.roles {
			var b strings.Builder
			b.WriteString("GRANT ")
			b.WriteString(p.String())
			b.WriteString(" ON ")
			b.WriteString(g.objectType)
			b.WriteByte(' ')
			b.WriteString(obj.text)
			b.WriteString(" TO ")
			b.WriteString(role)
			if g.grantOption {
				b.WriteString(" WITH GRANT OPTION")
			}
			b.WriteByte(';')
			stmts = append(stmts, model.Stmt(b.String()))
		}
	}
	return stmts
}
