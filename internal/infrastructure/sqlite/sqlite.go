package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"marketdata-service/internal/application"
	"marketdata-service/internal/domain"
	"marketdata-service/internal/infrastructure/logx"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type DB struct{ SQL *sql.DB }

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if path != MemoryPath {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer; an in-memory database also lives only as long as its connection.
	sqldb.SetMaxOpenConns(1)
	if _, err := sqldb.ExecContext(ctx, schema); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return &DB{SQL: sqldb}, nil
}

func (d *DB) Close() error                   { return d.SQL.Close() }
func (d *DB) Ping(ctx context.Context) error { return d.SQL.PingContext(ctx) }

type txKey struct{}

func txFromCtx(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

type UnitOfWork struct{ DB *sql.DB }

var _ application.UnitOfWork = (*UnitOfWork)(nil)

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type RecordStore struct{ db *DB }

var _ application.RecordStore = (*RecordStore)(nil)

func NewRecordStore(db *DB) *RecordStore { return &RecordStore{db: db} }

func (s *RecordStore) Insert(ctx context.Context, rec domain.Record) error {
	cols, vals := rec.Columns(), rec.Values()
	if len(cols) != len(vals) {
		return fmt.Errorf("sqlite: insert %s: %d columns, %d values", rec.Table(), len(cols), len(vals))
	}
	args := make([]any, len(vals))
	for i, v := range vals {
		a, err := bind(v)
		if err != nil {
			return fmt.Errorf("sqlite: insert %s: %s: %w", rec.Table(), cols[i], err)
		}
		args[i] = a
	}
	ins := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		rec.Table(), strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))

	var ex execer = s.db.SQL
	if tx := txFromCtx(ctx); tx != nil {
		ex = tx
	}
	log := logx.WithFields(ctx).With(zap.String("repo", "record"), zap.String("table", rec.Table()))
	if _, err := ex.ExecContext(ctx, ins, args...); err != nil {
		log.Error("sql.exec_failed", zap.String("sql", ins), zap.Error(err))
		return fmt.Errorf("sqlite: insert %s: %w", rec.Table(), err)
	}
	log.Debug("sql.exec_success")
	return nil
}

// bind resolves nullable wrappers and stores dates as YYYY-MM-DD text.
func bind(v any) (any, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		v = dv
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(domain.DateLayout), nil
	}
	return v, nil
}
