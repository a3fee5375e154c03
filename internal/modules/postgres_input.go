package modules

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/streamlet-go/streamlet/internal/errkind"
	"github.com/streamlet-go/streamlet/internal/registry"
	"github.com/streamlet-go/streamlet/internal/schema"
)

func init() {
	registry.Register(registry.Registration{
		Variant: registry.Input,
		Type:    "postgres",
		ConnectionSchema: schema.Object(
			schema.Optional("host", schema.String(), "localhost"),
			schema.Optional("port", schema.Int(), 5432),
			schema.Optional("user", schema.String(), "postgres"),
			schema.Optional("password", schema.String(), ""),
			schema.Optional("dbname", schema.String(), "postgres"),
			schema.Optional("sslmode", schema.String(), "disable"),
		),
		ParamsSchema: schema.Object(
			schema.Required("query", schema.String()),
			schema.Optional("args", schema.List(schema.Any()), []interface{}{}),
		),
		New: newPostgresInput,
	})
}

// postgresInput fetches records by running a parameterized query on
// every fire, grounded on PostgresManager.Get in pkg/runtime/postgres_node.go
// (connection-string assembly and lib/pq usage) generalized from a
// fixed key-value table into an arbitrary query source.
type postgresInput struct {
	Base
	db *sql.DB
}

func newPostgresInput(name string, config map[string]interface{}) (registry.Instance, error) {
	host := stringParam(config, "host", "localhost")
	port := intParam(config, "port", 5432)
	user := stringParam(config, "user", "postgres")
	password := stringParam(config, "password", "")
	dbname := stringParam(config, "dbname", "postgres")
	sslmode := stringParam(config, "sslmode", "disable")

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errkind.New(errkind.StartupHookFailed, err).WithModule(name)
	}

	return &postgresInput{Base: NewBase(name), db: db}, nil
}

func (p *postgresInput) OnConnect() error {
	if err := p.db.Ping(); err != nil {
		return errkind.New(errkind.StartupHookFailed, fmt.Errorf("postgres ping failed: %w", err)).WithModule(p.Name())
	}
	return nil
}

func (p *postgresInput) OnShutdown() error {
	return p.db.Close()
}

// Fetch runs params["query"] with params["args"] and returns each row
// as a flat record, column name to value.
func (p *postgresInput) Fetch(ctx context.Context, params map[string]interface{}) ([]map[string]interface{}, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("postgres input: query is required")
	}

	var args []interface{}
	if raw, ok := params["args"].([]interface{}); ok {
		args = raw
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("postgres columns failed: %w", err)
	}

	var records []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("postgres scan failed: %w", err)
		}
		record := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			record[col] = values[i]
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
