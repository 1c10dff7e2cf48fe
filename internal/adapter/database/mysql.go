package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/semmidev/serverbackup/internal/config"
	"github.com/semmidev/serverbackup/internal/domain"
)

var systemSchemas = []string{"information_schema", "performance_schema", "mysql", "sys"}

// CommandExecutor runs an external tool. Swapped out in tests.
type CommandExecutor interface {
	Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

type execExecutor struct{}

func (execExecutor) Run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	return cmd.CombinedOutput()
}

type MySQLDatabase struct {
	config   *config.MySQLConfig
	executor CommandExecutor
	db       *sql.DB
}

func NewMySQL(cfg *config.MySQLConfig) *MySQLDatabase {
	return &MySQLDatabase{config: cfg, executor: execExecutor{}}
}

// NewMySQLWithDeps builds a MySQLDatabase around an existing connection pool
// and executor.
func NewMySQLWithDeps(cfg *config.MySQLConfig, db *sql.DB, executor CommandExecutor) *MySQLDatabase {
	return &MySQLDatabase{config: cfg, executor: executor, db: db}
}

// Dump runs mysqldump for a single database into outputPath. The password
// travels through MYSQL_PWD so it never shows up in the process list.
func (m *MySQLDatabase) Dump(ctx context.Context, name, outputPath string) error {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	args := []string{
		fmt.Sprintf("--host=%s", m.config.Host),
		fmt.Sprintf("--port=%d", m.config.Port),
		fmt.Sprintf("--user=%s", m.config.Username),
		"--single-transaction",
		"--quick",
		"--skip-lock-tables",
		"--routines",
		"--triggers",
		"--events",
		fmt.Sprintf("--result-file=%s", outputPath),
		name,
	}

	var env []string
	if m.config.Password != "" {
		env = append(env, "MYSQL_PWD="+m.config.Password)
	}

	output, err := m.executor.Run(ctx, env, "mysqldump", args...)
	if err != nil {
		_ = os.Remove(outputPath)
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return &domain.ExternalToolError{
			Tool:   "mysqldump",
			Output: strings.TrimSpace(string(output)),
			Err:    err,
		}
	}

	if _, err := os.Stat(outputPath); err != nil {
		return &domain.ExternalToolError{Tool: "mysqldump", Err: fmt.Errorf("no dump written: %w", err)}
	}

	return nil
}

// ListDatabases returns every user database, skipping system schemas and
// the configured exclusions.
func (m *MySQLDatabase) ListDatabases(ctx context.Context) ([]string, error) {
	db, err := m.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	skip := make(map[string]bool, len(systemSchemas)+len(m.config.Exclude))
	for _, name := range systemSchemas {
		skip[name] = true
	}
	for _, name := range m.config.Exclude {
		skip[strings.TrimSpace(name)] = true
	}

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}
		name = strings.TrimSpace(name)
		if name == "" || skip[name] {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read database list: %w", err)
	}

	return names, nil
}

func (m *MySQLDatabase) Ping(ctx context.Context) error {
	db, err := m.conn()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	return nil
}

func (m *MySQLDatabase) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *MySQLDatabase) conn() (*sql.DB, error) {
	if m.db != nil {
		return m.db, nil
	}
	if m.config.Host == "" {
		return nil, errors.New("mysql host is not configured")
	}

	db, err := sql.Open("mysql", DSN(m.config))
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)
	m.db = db
	return db, nil
}

// DSN renders the driver connection string without selecting a database.
func DSN(cfg *config.MySQLConfig) string {
	dsn := mysql.NewConfig()
	dsn.User = cfg.Username
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dsn.Timeout = 10 * time.Second
	return dsn.FormatDSN()
}

var _ domain.Database = (*MySQLDatabase)(nil)
