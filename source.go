package pgdelta

import (
	"bytes"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/schemalex/pgdelta/internal/errors"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// SchemaSource is the interface used for objects that provide us with
// a database schema to work with.
type SchemaSource interface {
	// WriteSchema is responsible for doing whatever necessary to retrieve
	// the database schema and write to the given io.Writer
	WriteSchema(io.Writer) error
}

// DatabaseSource is a SchemaSource backed by a live database, which
// can also be opened for writing.
type DatabaseSource interface {
	SchemaSource
	Open() (*sql.DB, error)
}

type readerSource struct {
	src io.Reader
}

type mysqlSource string

type sqliteSource string

type localFileSource string

// LocalGitSource reads a schema file as of a given commit
type LocalGitSource struct {
	dir       string
	file      string
	commitish string
}

// NewSchemaSource creates a SchemaSource based on the given URI.
// Currently "-" (for stdin), "local-git://...", "mysql://...",
// "sqlite://..." and "file://..." are supported. A string that does not
// match any of the above patterns and has no scheme part is treated as
// a local file.
func NewSchemaSource(uri string) (SchemaSource, error) {
	// "-" is a special source, denoting stdin.
	if uri == "-" {
		return NewReaderSource(os.Stdin), nil
	}

	if strings.HasPrefix(uri, "mysql://") {
		// DSN is everything after "mysql://"
		return NewMySQLSource(uri[8:]), nil
	}

	if strings.HasPrefix(uri, "sqlite://") {
		if uri[9:] == "" {
			return nil, errors.New(`sqlite sources require a database path`)
		}
		return NewSQLiteSource(uri[9:]), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(err, `failed to parse uri`)
	}

	switch strings.ToLower(u.Scheme) {
	case "local-git":
		// local-git:///path/to/dir?file=foo&commitish=bar
		q := u.Query()
		if q.Get("file") == "" {
			return nil, errors.New(`local-git sources require a file parameter`)
		}
		return NewLocalGitSource(u.Path, q.Get("file"), q.Get("commitish")), nil
	case "file", "":
		// Eh, no remote host, please
		if u.Host != "" && u.Host != "localhost" {
			return nil, errors.Errorf(`remote hosts for file:// sources are not supported (%s)`, u.Host)
		}
		return NewLocalFileSource(u.Path), nil
	}

	return nil, errors.Errorf("invalid source %s", strconv.Quote(uri))
}

// NewReaderSource creates a SchemaSource whose contents are read from the
// given io.Reader.
func NewReaderSource(src io.Reader) SchemaSource {
	return &readerSource{src: src}
}

// NewMySQLSource creates a SchemaSource whose contents are derived by
// accessing the specified MySQL instance. The table definitions are
// followed by the grants of the connecting user.
//
// MySQL sources respect extra parameters "ssl-ca", "ssl-cert", and
// "ssl-secret" (which all should point to local file names) when
// the "tls" parameter is set to some boolean true value. In this
// case, we register the given tls configuration using those values
// automatically.
//
// Please note that the "tls" parameter MUST BE A BOOLEAN. Otherwise
// we expect that you have already registered your tls configuration
// manually, and that you gave us the name of that configuration
func NewMySQLSource(s string) DatabaseSource {
	return mysqlSource(s)
}

// NewSQLiteSource creates a SchemaSource whose contents are the
// definitions recorded in the given SQLite database file.
func NewSQLiteSource(path string) DatabaseSource {
	return sqliteSource(path)
}

// NewLocalFileSource creates a SchemaSource whose contents are derived from
// the given local file
func NewLocalFileSource(s string) SchemaSource {
	return localFileSource(s)
}

// NewLocalGitSource creates a SchemaSource whose contents are derived from
// the given file at the given commit ID in a git repository.
func NewLocalGitSource(gitDir, file, commitish string) *LocalGitSource {
	if commitish == "" {
		commitish = "HEAD"
	}
	return &LocalGitSource{
		dir:       gitDir,
		file:      file,
		commitish: commitish,
	}
}

func (s *readerSource) WriteSchema(dst io.Writer) error {
	if _, err := io.Copy(dst, s.src); err != nil {
		return errors.Wrap(err, `failed to write schema to dst`)
	}
	return nil
}

// MySQLConfig creates a *mysql.Config struct from the given DSN.
func (s mysqlSource) MySQLConfig() (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(string(s))
	if err != nil {
		return nil, errors.Wrap(err, `failed to parse DSN`)
	}

	// tls=true&ssl-ca=...&ssl-cert=...&ssl-secret=...
	if v, err := strconv.ParseBool(cfg.TLSConfig); err == nil && v {
		sslCa := cfg.Params["ssl-ca"]
		sslCert := cfg.Params["ssl-cert"]
		sslSecret := cfg.Params["ssl-secret"]
		if sslCa == "" || sslCert == "" || sslSecret == "" {
			return nil, errors.New(`to enable tls, you must provide ssl-ca, ssl-cert, and ssl-secret parameters to the DSN`)
		}
		delete(cfg.Params, "ssl-ca")
		delete(cfg.Params, "ssl-cert")
		delete(cfg.Params, "ssl-secret")

		// Comparing two mysql schemas registers two configurations,
		// so each one needs a unique name.
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return nil, errors.Wrap(err, `failed to generate tls config name`)
		}
		b[6] = (b[6] & 0x0F) | 0x40
		b[8] = (b[8] &^ 0x40) | 0x80
		tlsName := fmt.Sprintf("custom-tls-%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])

		rootCertPool := x509.NewCertPool()
		pem, err := os.ReadFile(sslCa)
		if err != nil {
			return nil, errors.Wrap(err, `failed to read ssl-ca file`)
		}

		if ok := rootCertPool.AppendCertsFromPEM(pem); !ok {
			return nil, errors.New(`failed to append ssl-ca PEM to cert pool`)
		}
		certs, err := tls.LoadX509KeyPair(sslCert, sslSecret)
		if err != nil {
			return nil, errors.Wrap(err, `failed to load X509 key pair`)
		}
		if err := mysql.RegisterTLSConfig(tlsName, &tls.Config{
			RootCAs:      rootCertPool,
			Certificates: []tls.Certificate{certs},
		}); err != nil {
			return nil, errors.Wrap(err, `failed to register tls config`)
		}
		cfg.TLSConfig = tlsName
	}
	return cfg, nil
}

// Open opens a connection to the MySQL instance
func (s mysqlSource) Open() (*sql.DB, error) {
	cfg, err := s.MySQLConfig()
	if err != nil {
		return nil, errors.Wrap(err, `failed to create MySQL config from source spec`)
	}

	return sql.Open("mysql", cfg.FormatDSN())
}

func (s mysqlSource) WriteSchema(dst io.Writer) error {
	db, err := s.Open()
	if err != nil {
		return errors.Wrap(err, `failed to open connection to database`)
	}
	defer db.Close()

	tableRows, err := db.Query("SHOW TABLES")
	if err != nil {
		return errors.Wrap(err, `failed to execute 'SHOW TABLES'`)
	}
	defer tableRows.Close()

	var tables []string
	for tableRows.Next() {
		var table string
		if err := tableRows.Scan(&table); err != nil {
			return errors.Wrap(err, `failed to scan tables`)
		}
		tables = append(tables, table)
	}
	if err := tableRows.Err(); err != nil {
		return errors.Wrap(err, `failed to read tables`)
	}

	var buf bytes.Buffer
	for _, table := range tables {
		var name, tableSchema string
		if err := db.QueryRow("SHOW CREATE TABLE `"+table+"`").Scan(&name, &tableSchema); err != nil {
			return errors.Wrapf(err, `failed to execute 'SHOW CREATE TABLE "%s"'`, table)
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(tableSchema)
		buf.WriteByte(';')
	}

	grantRows, err := db.Query("SHOW GRANTS")
	if err != nil {
		return errors.Wrap(err, `failed to execute 'SHOW GRANTS'`)
	}
	defer grantRows.Close()

	for grantRows.Next() {
		var grant string
		if err := grantRows.Scan(&grant); err != nil {
			return errors.Wrap(err, `failed to scan grants`)
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(grant)
		buf.WriteByte(';')
	}
	if err := grantRows.Err(); err != nil {
		return errors.Wrap(err, `failed to read grants`)
	}

	return NewReaderSource(&buf).WriteSchema(dst)
}

// Open opens the SQLite database file
func (s sqliteSource) Open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", string(s))
	if err != nil {
		return nil, errors.Wrapf(err, `failed to open sqlite database %s`, string(s))
	}
	return db, nil
}

func (s sqliteSource) WriteSchema(dst io.Writer) error {
	db, err := s.Open()
	if err != nil {
		return errors.Wrap(err, `failed to open connection to database`)
	}
	defer db.Close()

	rows, err := db.Query("SELECT sql FROM sqlite_master WHERE sql IS NOT NULL AND name NOT LIKE 'sqlite_%' ORDER BY rowid")
	if err != nil {
		return errors.Wrap(err, `failed to query sqlite_master`)
	}
	defer rows.Close()

	var buf bytes.Buffer
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return errors.Wrap(err, `failed to scan sqlite_master`)
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(stmt)
		buf.WriteByte(';')
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, `failed to read sqlite_master`)
	}

	return NewReaderSource(&buf).WriteSchema(dst)
}

func (s localFileSource) WriteSchema(dst io.Writer) error {
	f, err := os.Open(string(s))
	if err != nil {
		return errors.Wrapf(err, `failed to open local file %s`, string(s))
	}
	defer f.Close()

	if _, err := io.Copy(dst, f); err != nil {
		return errors.Wrap(err, `failed to copy file contents to dst`)
	}
	return nil
}

// Dir returns the repository directory
func (s *LocalGitSource) Dir() string { return s.dir }

// File returns the path of the schema file within the repository
func (s *LocalGitSource) File() string { return s.file }

// Commitish returns the revision the schema file is read at
func (s *LocalGitSource) Commitish() string { return s.commitish }

// Revision resolves the commitish to a full commit SHA
func (s *LocalGitSource) Revision() (string, error) {
	var out bytes.Buffer
	cmd := exec.Command("git", "rev-parse", s.commitish)
	cmd.Stdout = &out
	cmd.Dir = s.dir

	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, `failed to run git command: %s`, cmd.Args)
	}
	return strings.TrimSpace(out.String()), nil
}

func (s *LocalGitSource) WriteSchema(dst io.Writer) error {
	var out bytes.Buffer
	cmd := exec.Command("git", "show", fmt.Sprintf("%s:%s", s.commitish, s.file))
	cmd.Stdout = &out
	cmd.Dir = s.dir

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, `failed to run git command: %s`, cmd.Args)
	}

	return NewReaderSource(&out).WriteSchema(dst)
}
