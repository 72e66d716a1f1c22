package pg

import (
	"context"
	"fmt"
	"strings"

	"marketdata-service/internal/application"
	"marketdata-service/internal/domain"
	"marketdata-service/internal/infrastructure/logx"

	"go.uber.org/zap"
)

// RecordStore appends normalized rows, joining the transaction opened by
// UnitOfWork when ctx carries one.
type RecordStore struct{ db *DB }

var _ application.RecordStore = (*RecordStore)(nil)

func NewRecordStore(db *DB) *RecordStore { return &RecordStore{db: db} }

func (s *RecordStore) Insert(ctx context.Context, rec domain.Record) error {
	cols, vals := rec.Columns(), rec.Values()
	if len(cols) != len(vals) {
		return fmt.Errorf("pg: insert %s: %d columns, %d values", rec.Table(), len(cols), len(vals))
	}
	ins := insertSQL(rec.Table(), cols)

	var ex execer = s.db.Pool
	if tx := txFromCtx(ctx); tx != nil {
		ex = tx
	}
	log := logx.WithFields(ctx).With(
		zap.String("repo", "record"),
		zap.String("table", rec.Table()),
		zap.String("sql", ins),
	)
	log.Debug("sql.exec_start")
	tag, err := ex.Exec(ctx, ins, vals...)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return fmt.Errorf("pg: insert %s: %w", rec.Table(), err)
	}
	log.Debug("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}

func insertSQL(table string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))
}
