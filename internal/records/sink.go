package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"kline_trader/internal/metrics"
	"kline_trader/internal/models"
	"kline_trader/internal/notify"
	"kline_trader/pkg/db"
)

// Sink — запись строк в хранилище. Ошибки не возвращаются: сообщаем оператору и теряем пачку.
// Безопасен для конкурентного использования.
type Sink interface {
	Append(ctx context.Context, table Table, rows []Row)
}

const writeTimeout = 5 * time.Second

type PgSink struct {
	tx       db.TxManager
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewPgSink(tx db.TxManager, n notify.Notifier, logger *zap.Logger) *PgSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PgSink{tx: tx, notifier: n, logger: logger.Named("records")}
}

func (s *PgSink) Append(ctx context.Context, table Table, rows []Row) {
	if len(rows) == 0 {
		return
	}
	if err := s.insert(ctx, table, rows); err != nil {
		metrics.ObserveSinkFailure(string(table))
		s.logger.Error("record batch dropped",
			zap.String("table", string(table)), zap.Int("rows", len(rows)), zap.Error(err))
		if s.notifier != nil {
			s.notifier.Sendf("❗️ database error, %d %s rows dropped: %v", len(rows), table, err)
		}
	}
}

func (s *PgSink) insert(ctx context.Context, table Table, rows []Row) error {
	cols := table.Columns()
	if len(cols) == 0 {
		return models.Errorf(models.KindRecordSinkFailure, "append", "unknown table %q", table)
	}
	query := insertSQL(table, cols)

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err := s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		args := make([]any, len(cols))
		for _, r := range rows {
			for i, c := range cols {
				args[i] = r[c]
			}
			if _, err := tx.Exec(ctxTx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewError(models.KindRecordSinkFailure, "append "+string(table), err)
	}
	return nil
}

func insertSQL(table Table, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(ph, ", "))
}

// LogSink — без базы: строки уходят в лог.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("records")}
}

func (s *LogSink) Append(_ context.Context, table Table, rows []Row) {
	for _, r := range rows {
		fields := make([]zap.Field, 0, len(r)+1)
		fields = append(fields, zap.String("table", string(table)))
		for _, c := range table.Columns() {
			if v, ok := r[c]; ok {
				fields = append(fields, zap.Any(c, v))
			}
		}
		s.logger.Info("record", fields...)
	}
}
