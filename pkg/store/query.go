package store

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

var (
	postgresCreateTmpl = template.Must(template.New("CreatePostgresTable").Parse(`
		CREATE TABLE IF NOT EXISTS {{.Table}} (
			project     TEXT        NOT NULL,
			database_id TEXT        NOT NULL,
			path        TEXT        NOT NULL,
			document    JSONB       NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (project, database_id, path)
		)
	`))
	postgresInsertTmpl = template.Must(template.New("InsertPostgresDocument").Parse(`
		INSERT INTO {{.Table}} (project, database_id, path, document, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`))
	sqliteCreateTmpl = template.Must(template.New("CreateSQLiteTable").Parse(`
		CREATE TABLE IF NOT EXISTS {{.Table}} (
			project     TEXT NOT NULL,
			database_id TEXT NOT NULL,
			path        TEXT NOT NULL,
			document    TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			PRIMARY KEY (project, database_id, path)
		)
	`))
	sqliteInsertTmpl = template.Must(template.New("InsertSQLiteDocument").Parse(`
		INSERT INTO {{.Table}} (project, database_id, path, document, created_at)
		VALUES (?, ?, ?, ?, ?)
	`))

	tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	whitespace       = regexp.MustCompile(`\s+`)
)

type tableTmplValues struct {
	Table string
}

// QueryBuilder renders the SQL used by the relational document stores.
type QueryBuilder struct {
	Table string
}

func NewQueryBuilder(table string) (*QueryBuilder, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	return &QueryBuilder{Table: table}, nil
}

func (q *QueryBuilder) PostgresCreateTable() (string, error) {
	return q.render(postgresCreateTmpl)
}

func (q *QueryBuilder) PostgresInsert() (string, error) {
	return q.render(postgresInsertTmpl)
}

func (q *QueryBuilder) SQLiteCreateTable() (string, error) {
	return q.render(sqliteCreateTmpl)
}

func (q *QueryBuilder) SQLiteInsert() (string, error) {
	return q.render(sqliteInsertTmpl)
}

func (q *QueryBuilder) render(tmpl *template.Template) (string, error) {
	b := new(strings.Builder)
	if err := tmpl.Execute(b, tableTmplValues{Table: q.Table}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func CleanForLogging(query string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(query, " "))
}
