package deploy

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/schemalex/pgdelta"
	"github.com/schemalex/pgdelta/diff"
	"github.com/schemalex/pgdelta/internal/errors"
	"github.com/schemalex/pgdelta/internal/option"
	"go.uber.org/zap"
)

type Option = pgdelta.Option

const (
	optkeyLogger       = "logger"
	optkeyVersionTable = "version-table"
)

// DefaultVersionTable is the table the deployed revision is recorded in
const DefaultVersionTable = "pgdelta_version"

// WithLogger specifies the logger each executed statement is reported to
func WithLogger(l *zap.Logger) Option {
	return option.New(optkeyLogger, l)
}

// WithVersionTable specifies the name of the table the deployed
// revision is recorded in
func WithVersionTable(name string) Option {
	return option.New(optkeyVersionTable, name)
}

type gitSource interface {
	pgdelta.SchemaSource
	Dir() string
	Revision() (string, error)
}

type errIdenticalVersions struct {
	version string
}

func (e errIdenticalVersions) Error() string {
	return "identical versions: " + e.version + " is already deployed"
}

func (e errIdenticalVersions) IsIdenticalVersions() bool {
	return true
}

type isIdenticalVersionsError interface {
	IsIdenticalVersions() bool
}

// IsIdenticalVersionsError returns true if err, or any error it wraps,
// reports that the revision being deployed is already deployed
func IsIdenticalVersionsError(err error) bool {
	if err == nil {
		return false
	}

	if ive, ok := err.(isIdenticalVersionsError); ok {
		return ive.IsIdenticalVersions()
	}

	cerr := errors.Cause(err)
	if cerr == err {
		return false
	}

	return IsIdenticalVersionsError(cerr)
}

// Diff takes the two schema sources, creates a diff, and deploys the difference
// to the database source specified by the `from` parameter. The statements
// of the diff are executed in a single transaction.
//
// If `to` is a local git source, the commit SHA it resolves to is recorded
// in the version table along with the schema. The table is created if it
// does not exist, as
//
//	version VARCHAR(40) NOT NULL
//
// If the deployed schema version and the yet-to-be deployed commit hash
// are equal, a special error is returned. You should use
// deploy.IsIdenticalVersionsError to determine if the error means the
// schemas are identical
func Diff(ctx context.Context, from, to pgdelta.SchemaSource, options ...Option) error {
	dbsrc, ok := from.(pgdelta.DatabaseSource)
	if !ok {
		return errors.New(`'from' schema must be a valid database source`)
	}

	logger := option.Lookup[*zap.Logger](options, optkeyLogger, nil)
	if logger == nil {
		logger = zap.NewNop()
	}
	table := option.Lookup(options, optkeyVersionTable, DefaultVersionTable)

	var hash string
	if gitsrc, ok := to.(gitSource); ok {
		// local-git implies that we have a git repository checked out somewhere
		// locally. make sure that we do...
		if _, err := os.Stat(filepath.Join(gitsrc.Dir(), ".git")); err != nil {
			return errors.Wrapf(err, `could not find .git under %s`, gitsrc.Dir())
		}

		v, err := gitsrc.Revision()
		if err != nil {
			return errors.Wrap(err, `failed to determine local git SHA1 version to deploy`)
		}
		hash = v
	}

	db, err := dbsrc.Open()
	if err != nil {
		return errors.Wrap(err, `failed to open connection to database`)
	}
	defer db.Close()

	if hash != "" {
		if err := prepareVersionTable(ctx, db, table); err != nil {
			return err
		}
		if isIdenticalVersions(ctx, db, table, hash) {
			return errIdenticalVersions{version: hash}
		}
	}

	stmts, err := diffStatements(from, to)
	if err != nil {
		return errors.Wrap(err, `failed to deploy schema`)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, `failed to begin transaction`)
	}
	defer tx.Rollback()

	for _, stmt := range stmts {
		logger.Info("executing statement", zap.String("statement", stmt))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, `failed to execute "%s"`, stmt)
		}
	}

	if hash != "" {
		if err := deployVersion(ctx, tx, table, hash); err != nil {
			return errors.Wrap(err, `failed to store schema version`)
		}
		logger.Info("recorded schema version", zap.String("version", hash))
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, `failed to commit`)
	}
	return nil
}

func diffStatements(from, to pgdelta.SchemaSource) ([]string, error) {
	var dst bytes.Buffer
	if err := diff.Sources(&dst, from, to, diff.WithTransaction(false)); err != nil {
		return nil, errors.Wrap(err, `failed to generate diffs`)
	}

	stmts, err := pgdelta.SplitStatements(dst.String())
	if err != nil {
		return nil, errors.Wrap(err, `failed to split diff into statements`)
	}
	return stmts, nil
}

func prepareVersionTable(ctx context.Context, db *sql.DB, table string) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (version VARCHAR(40) NOT NULL)`); err != nil {
		return errors.Wrapf(err, `failed to create %s table`, table)
	}
	return nil
}

func deployVersion(ctx context.Context, tx *sql.Tx, table, hash string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return errors.Wrap(err, `failed to clear previous version`)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (version) VALUES (?)`, hash); err != nil {
		return errors.Wrap(err, `failed to insert new version`)
	}
	return nil
}

func isIdenticalVersions(ctx context.Context, db *sql.DB, table, hash string) bool {
	var remoteVersion string
	if err := db.QueryRowContext(ctx, `SELECT version FROM `+table).Scan(&remoteVersion); err != nil {
		return false
	}

	return hash == remoteVersion
}
