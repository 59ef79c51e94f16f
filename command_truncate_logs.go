package requesttoken

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// TruncateLogsMessage prunes the usage ledger for housekeeping. Keep
// retains the N most recent entries regardless of age; MaxAge drops
// entries older than the window. Zero values disable the respective rule.
type TruncateLogsMessage struct {
	Keep   int           `json:"keep"`
	MaxAge time.Duration `json:"max_age"`
}

func (e TruncateLogsMessage) Type() string { return "token.truncate_logs" }

type TruncateLogsHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewTruncateLogsHandler(repo RepositoryManager, logger Logger) *TruncateLogsHandler {
	if logger == nil {
		logger = &defLogger{}
	}
	return &TruncateLogsHandler{repo: repo, logger: logger}
}

// Execute prunes the ledger and returns the number of entries removed.
func (h *TruncateLogsHandler) Execute(ctx context.Context, event TruncateLogsMessage) (int, error) {
	select {
	case <-ctx.Done():
		return 0, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during log truncation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *TruncateLogsHandler) execute(ctx context.Context, event TruncateLogsMessage) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	removed := 0
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if event.Keep > 0 {
			n, err := h.truncateByCount(ctx, tx, event.Keep)
			if err != nil {
				return err
			}
			removed += n
		}

		if event.MaxAge > 0 {
			n, err := h.truncateByAge(ctx, tx, time.Now().Add(-event.MaxAge))
			if err != nil {
				return err
			}
			removed += n
		}

		return nil
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return 0, richErr
		}
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "log truncation transaction failed")
	}

	if removed > 0 {
		h.logger.Info("truncated %d token log entries", removed)
	}

	return removed, nil
}

// truncateByCount removes everything older than the keep-th newest entry.
func (h *TruncateLogsHandler) truncateByCount(ctx context.Context, tx bun.Tx, keep int) (int, error) {
	var oldestKept int64
	err := tx.NewSelect().
		Model((*TokenLog)(nil)).
		Column("rtl.id").
		OrderExpr("rtl.id DESC").
		Limit(1).
		Offset(keep - 1).
		Scan(ctx, &oldestKept)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to find truncation cutoff")
	}

	return h.deleteBefore(ctx, tx, "rtl.id < ?", oldestKept)
}

func (h *TruncateLogsHandler) truncateByAge(ctx context.Context, tx bun.Tx, cutoff time.Time) (int, error) {
	return h.deleteBefore(ctx, tx, "rtl.timestamp < ?", cutoff)
}

// deleteBefore drops matching entries and their error logs. Error logs go
// first so the ledger never holds an orphaned error.
func (h *TruncateLogsHandler) deleteBefore(ctx context.Context, tx bun.Tx, cond string, arg any) (int, error) {
	doomed := tx.NewSelect().
		Model((*TokenLog)(nil)).
		Column("rtl.id").
		Where(cond, arg)

	if _, err := tx.NewDelete().
		Model((*TokenErrorLog)(nil)).
		Where("log_id IN (?)", doomed).
		Exec(ctx); err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to truncate token error logs")
	}

	res, err := tx.NewDelete().
		Model((*TokenLog)(nil)).
		Where(cond, arg).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to truncate token logs")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(rows), nil
}
