package pgdelta

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/schemalex/pgdelta/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFile = ""

func init() {
	flag.StringVar(&testFile, "test-file", testFile, "path to test file")
}

// dump renders every statement of db as "<schema> <category> <text>",
// one per line, in schema then category order
func dump(db model.Database) string {
	var lines []string
	for _, s := range db.Schemas() {
		for _, c := range model.Categories() {
			for _, stmt := range s.Statements(c) {
				lines = append(lines, s.Name()+" "+c.String()+" "+stmt.String())
			}
		}
	}
	return strings.Join(lines, "\n")
}

func TestParser(t *testing.T) {
	type Spec struct {
		Input   string
		Error   bool
		Expect  string
		Ignored []string
	}

	specs := []Spec{
		{
			Input:  "create table hoge ( id integer not null)",
			Expect: "public table create table hoge ( id integer not null);",
		},
		// with c style comment
		{
			Input:  "create table hoge ( /* id integer not null */ c varchar not null )",
			Expect: "public table create table hoge ( c varchar not null );",
		},
		// with double dash comment
		{
			Input:  "create table hoge ( -- id integer not null;\n c varchar not null )",
			Expect: "public table create table hoge ( c varchar not null );",
		},
		// whitespace runs collapse, case is kept
		{
			Input:  "CREATE   TABLE\n\tHoge (a int);",
			Expect: "public table CREATE TABLE Hoge (a int);",
		},
		{
			Input:  "SET search_path = app, pg_catalog;\nCREATE TABLE t (a int);",
			Expect: "app table CREATE TABLE t (a int);",
		},
		{
			Input:  "SET search_path TO 'app';\nCREATE SEQUENCE s;",
			Expect: "app sequence CREATE SEQUENCE s;",
		},
		{
			Input:  "CREATE TABLE app.t (a int);",
			Expect: "app table CREATE TABLE app.t (a int);",
		},
		{
			Input:  `CREATE TABLE "App".t (a int);`,
			Expect: `App table CREATE TABLE "App".t (a int);`,
		},
		{
			Input:  "CREATE TABLE APP.t (a int);",
			Expect: "app table CREATE TABLE APP.t (a int);",
		},
		{
			Input:  "CREATE SCHEMA IF NOT EXISTS app;",
			Expect: "app schema CREATE SCHEMA IF NOT EXISTS app;",
		},
		{
			Input:  "CREATE EXTENSION IF NOT EXISTS pgcrypto WITH SCHEMA pg_catalog;",
			Expect: "public extension CREATE EXTENSION IF NOT EXISTS pgcrypto WITH SCHEMA pg_catalog;",
		},
		{
			Input:  "CREATE UNIQUE INDEX ix ON app.t (a);",
			Expect: "app index CREATE UNIQUE INDEX ix ON app.t (a);",
		},
		{
			Input:  "CREATE INDEX CONCURRENTLY ix ON ONLY t USING btree (a);",
			Expect: "public index CREATE INDEX CONCURRENTLY ix ON ONLY t USING btree (a);",
		},
		{
			Input:  "CREATE TRIGGER trg BEFORE INSERT OR UPDATE ON app.t FOR EACH ROW EXECUTE FUNCTION f();",
			Expect: "app trigger CREATE TRIGGER trg BEFORE INSERT OR UPDATE ON app.t FOR EACH ROW EXECUTE FUNCTION f();",
		},
		// trigger bodies carry their own semicolons
		{
			Input:  "CREATE TRIGGER trg AFTER INSERT ON t BEGIN UPDATE t SET a = 1; END;\nCREATE TABLE u (a int);",
			Expect: "public table CREATE TABLE u (a int);\npublic trigger CREATE TRIGGER trg AFTER INSERT ON t BEGIN UPDATE t SET a = 1; END;",
		},
		{
			Input:  "CREATE OR REPLACE FUNCTION app.f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql;",
			Expect: "app function CREATE OR REPLACE FUNCTION app.f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql;",
		},
		// begin is an ordinary column name outside of bodies
		{
			Input:  "CREATE TABLE public.periods (id integer, begin date);\nGRANT SELECT ON TABLE public.periods TO alice;\nCOMMENT ON COLUMN public.periods.begin IS 'x';\nCREATE INDEX ix ON public.periods (id);",
			Expect: "public table CREATE TABLE public.periods (id integer, begin date);\npublic index CREATE INDEX ix ON public.periods (id);\npublic grant GRANT SELECT ON TABLE public.periods TO alice;\npublic comment COMMENT ON COLUMN public.periods.begin IS 'x';",
		},
		{
			Input:  "CREATE TRIGGER trg BEFORE UPDATE OF begin ON t FOR EACH ROW EXECUTE FUNCTION f();\nGRANT SELECT ON t TO alice;",
			Expect: "public trigger CREATE TRIGGER trg BEFORE UPDATE OF begin ON t FOR EACH ROW EXECUTE FUNCTION f();\npublic grant GRANT SELECT ON TABLE t TO alice;",
		},
		{
			Input:  "CREATE FUNCTION f() RETURNS int LANGUAGE sql BEGIN ATOMIC SELECT 1; SELECT 2; END;\nGRANT SELECT ON t TO alice;",
			Expect: "public function CREATE FUNCTION f() RETURNS int LANGUAGE sql BEGIN ATOMIC SELECT 1; SELECT 2; END;\npublic grant GRANT SELECT ON TABLE t TO alice;",
		},
		{
			Input:  "CREATE MATERIALIZED VIEW v AS SELECT CASE WHEN a THEN 1 END FROM t;",
			Expect: "public view CREATE MATERIALIZED VIEW v AS SELECT CASE WHEN a THEN 1 END FROM t;",
		},
		{
			Input:  "CREATE RULE r AS ON INSERT TO app.t DO INSTEAD NOTHING;",
			Expect: "app rule CREATE RULE r AS ON INSERT TO app.t DO INSTEAD NOTHING;",
		},
		{
			Input:  "CREATE POLICY p ON t USING (true);",
			Expect: "public policy CREATE POLICY p ON t USING (true);",
		},
		{
			Input:  "CREATE TYPE mood AS ENUM ('sad', 'ok');\nCREATE DOMAIN posint AS int CHECK (VALUE > 0);",
			Expect: "public type CREATE TYPE mood AS ENUM ('sad', 'ok');\npublic type CREATE DOMAIN posint AS int CHECK (VALUE > 0);",
		},
		{
			Input:  "ALTER TABLE ONLY t ADD CONSTRAINT t_pk PRIMARY KEY (a);\nALTER TABLE t OWNER TO bob;",
			Expect: "public alter ALTER TABLE t OWNER TO bob;\npublic constraint ALTER TABLE ONLY t ADD CONSTRAINT t_pk PRIMARY KEY (a);",
		},
		{
			Input:  "COMMENT ON COLUMN app.t.a IS 'x';\nCOMMENT ON SCHEMA other IS 'y';\nCOMMENT ON TABLE t IS 'z';",
			Expect: "public comment COMMENT ON TABLE t IS 'z';\napp comment COMMENT ON COLUMN app.t.a IS 'x';\nother comment COMMENT ON SCHEMA other IS 'y';",
		},
		{
			Input:  "COMMENT ON TRIGGER trg ON app.t IS 'x';",
			Expect: "app comment COMMENT ON TRIGGER trg ON app.t IS 'x';",
		},
		// grants
		{
			Input:  "GRANT SELECT ON t TO alice;",
			Expect: "public grant GRANT SELECT ON TABLE t TO alice;",
		},
		{
			Input: "GRANT SELECT, UPDATE (a, b) ON TABLE app.t, u TO alice, GROUP bob WITH GRANT OPTION;",
			Expect: strings.Join([]string{
				"public grant GRANT SELECT ON TABLE u TO alice WITH GRANT OPTION;",
				"public grant GRANT SELECT ON TABLE u TO bob WITH GRANT OPTION;",
				"public grant GRANT UPDATE (a, b) ON TABLE u TO alice WITH GRANT OPTION;",
				"public grant GRANT UPDATE (a, b) ON TABLE u TO bob WITH GRANT OPTION;",
				"app grant GRANT SELECT ON TABLE app.t TO alice WITH GRANT OPTION;",
				"app grant GRANT SELECT ON TABLE app.t TO bob WITH GRANT OPTION;",
				"app grant GRANT UPDATE (a, b) ON TABLE app.t TO alice WITH GRANT OPTION;",
				"app grant GRANT UPDATE (a, b) ON TABLE app.t TO bob WITH GRANT OPTION;",
			}, "\n"),
		},
		{
			Input:  "grant all privileges on schema app, other to alice;",
			Expect: "app grant GRANT ALL ON SCHEMA app TO alice;\nother grant GRANT ALL ON SCHEMA other TO alice;",
		},
		{
			Input:  "GRANT USAGE, TEMP ON SEQUENCE s TO alice;",
			Expect: "public grant GRANT USAGE ON SEQUENCE s TO alice;\npublic grant GRANT TEMPORARY ON SEQUENCE s TO alice;",
		},
		{
			Input:  "GRANT EXECUTE ON FUNCTION f(int) TO alice;",
			Expect: "public grant GRANT EXECUTE ON FUNCTION f(int) TO alice;",
		},
		{
			Input:  "GRANT SELECT ON ALL TABLES IN SCHEMA app TO alice;",
			Expect: "app grant GRANT SELECT ON ALL TABLES IN SCHEMA app TO alice;",
		},
		// grants we cannot break down are kept whole
		{
			Input:  "GRANT ALL ON *.* TO `u`@`%`;",
			Expect: "public grant GRANT ALL ON *.* TO `u`@`%`;",
		},
		{
			Input:  "GRANT SELECT ON t TO alice GRANTED BY bob;",
			Expect: "public grant GRANT SELECT ON t TO alice GRANTED BY bob;",
		},
		// ignored statements
		{
			Input:   "GRANT admin TO alice;",
			Ignored: []string{"GRANT admin TO alice;"},
		},
		{
			Input:   "REVOKE SELECT ON t FROM alice;\nCREATE DATABASE foo;\nDROP TABLE t;",
			Ignored: []string{"REVOKE SELECT ON t FROM alice;", "CREATE DATABASE foo;", "DROP TABLE t;"},
		},
		// skipped silently
		{
			Input: "BEGIN;\nINSERT INTO t VALUES (1);\nSET client_encoding = 'UTF8';\nCOMMIT;",
		},
		// errors
		{
			Input: "CREATE TABLE 'oops' (a int);",
			Error: true,
		},
		{
			Input: "CREATE TABLE t (a text DEFAULT 'x);",
			Error: true,
		},
		{
			Input: "CREATE INDEX ix;",
			Error: true,
		},
		{
			Input: "SET search_path = ;",
			Error: true,
		},
	}

	p := New()
	for _, spec := range specs {
		t.Logf("Parsing '%s'", spec.Input)
		db, err := p.ParseString(spec.Input)
		if spec.Error {
			assert.Error(t, err, "should be an error")
			continue
		}
		if !assert.NoError(t, err, "parse should succeed") {
			continue
		}

		assert.Equal(t, spec.Expect, dump(db), "statements should match")
		assert.Equal(t, spec.Ignored, db.IgnoredStatements(), "ignored statements should match")
	}
}

func TestParserPublicSchema(t *testing.T) {
	db, err := New().ParseString("")
	require.NoError(t, err)

	schemas := db.Schemas()
	require.Len(t, schemas, 1, "the public schema always exists")
	assert.Equal(t, model.DefaultSchemaName, schemas[0].Name())
	assert.Equal(t, 0, schemas[0].Len())
}

func TestParseError(t *testing.T) {
	_, err := New().ParseString("CREATE TABLE t (a int);\nGRANT SELECT ON 'foo")
	require.Error(t, err)

	perr, ok := err.(ParseError)
	require.True(t, ok, "expected a ParseError, got %T", err)
	assert.Equal(t, "unterminated quoted string", perr.Message())
	assert.Equal(t, 2, perr.Line())
	assert.Equal(t, 17, perr.Col())
	assert.True(t, perr.EOF())
	assert.Contains(t, perr.Error(), `"GRANT SELECT ON 'foo" <---- AROUND HERE`)

	// the truncated context must not split a multi-byte character
	_, err = New().ParseString("COMMENT ON TABLE t IS 'x" + strings.Repeat("あ", 30))
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()), "context should be valid UTF-8: %q", err.Error())
	assert.Contains(t, err.Error(), `"`+strings.Repeat("あ", 13)+`" <---- AROUND HERE`)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	fn := filepath.Join(dir, "schema.sql")
	require.NoError(t, os.WriteFile(fn, []byte("GRANT SELECT ON t TO alice;\n"), 0644))

	db, err := New().ParseFile(fn)
	require.NoError(t, err)
	assert.Equal(t, "public grant GRANT SELECT ON TABLE t TO alice;", dump(db))

	bad := filepath.Join(dir, "bad.sql")
	require.NoError(t, os.WriteFile(bad, []byte("CREATE TABLE t (a text DEFAULT $$x);\n"), 0644))

	_, err = New().ParseFile(bad)
	require.Error(t, err)
	perr, ok := err.(ParseError)
	require.True(t, ok, "expected a ParseError, got %T", err)
	assert.Equal(t, bad, perr.File())
	assert.Equal(t, "unterminated dollar-quoted string", perr.Message())

	_, err = New().ParseFile(filepath.Join(dir, "missing.sql"))
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	db, err := New().ParseSource(NewReaderSource(strings.NewReader("CREATE SCHEMA app;")))
	require.NoError(t, err)
	assert.Equal(t, "app schema CREATE SCHEMA app;", dump(db))
}

func TestSplitStatements(t *testing.T) {
	stmts, err := SplitStatements(`
-- leading comment
CREATE TABLE t (
	a int, -- trailing comment
	b text DEFAULT 'x;y'
);

CREATE FUNCTION f() RETURNS trigger AS $body$
BEGIN
	RETURN NEW;
END;
$body$ LANGUAGE plpgsql;
GRANT SELECT ON t TO alice`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE t ( a int, b text DEFAULT 'x;y' );",
		"CREATE FUNCTION f() RETURNS trigger AS $body$\nBEGIN\n\tRETURN NEW;\nEND;\n$body$ LANGUAGE plpgsql;",
		"GRANT SELECT ON t TO alice;",
	}, stmts)

	stmts, err = SplitStatements(`CREATE TABLE public.periods (id integer, begin date);
GRANT SELECT ON TABLE public.periods TO alice;
COMMENT ON COLUMN public.periods.begin IS 'x';
CREATE INDEX ix ON public.periods (id);
CREATE TRIGGER trg AFTER UPDATE OF begin ON periods BEGIN SELECT CASE WHEN 1 THEN 2 END; DELETE FROM t; END;
SELECT CASE WHEN a THEN 1 END FROM t;
CREATE PROCEDURE p() BEGIN ATOMIC INSERT INTO t VALUES (1); END;
BEGIN;`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE public.periods (id integer, begin date);",
		"GRANT SELECT ON TABLE public.periods TO alice;",
		"COMMENT ON COLUMN public.periods.begin IS 'x';",
		"CREATE INDEX ix ON public.periods (id);",
		"CREATE TRIGGER trg AFTER UPDATE OF begin ON periods BEGIN SELECT CASE WHEN 1 THEN 2 END; DELETE FROM t; END;",
		"SELECT CASE WHEN a THEN 1 END FROM t;",
		"CREATE PROCEDURE p() BEGIN ATOMIC INSERT INTO t VALUES (1); END;",
		"BEGIN;",
	}, stmts)

	_, err = SplitStatements("SELECT 'unterminated")
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	if testFile == "" {
		t.Skipf("test-file is nil")
		return
	}

	db, err := New().ParseFile(testFile)
	require.NoError(t, err)
	t.Log(dump(db))
	for _, stmt := range db.IgnoredStatements() {
		t.Logf("ignored: %s", stmt)
	}
}
