package requesttoken

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RequestMeta carries the request attributes recorded with each token use.
// Nil pointer fields mean the attribute was absent, not empty.
type RequestMeta struct {
	User         Identity
	UserAgent    string
	ForwardedFor *string
	RemoteAddr   *string
}

func (m RequestMeta) userAgent() string {
	if m.UserAgent == "" {
		return "unknown"
	}
	return m.UserAgent
}

// clientIP prefers the first X-Forwarded-For entry over the socket address.
func (m RequestMeta) clientIP() *string {
	if ip := ParseXFF(m.ForwardedFor); ip != nil && *ip != "" {
		return ip
	}
	return m.RemoteAddr
}

func (m RequestMeta) userID() *uuid.UUID {
	if m.User == nil {
		return nil
	}
	id, err := uuid.Parse(m.User.ID())
	if err != nil {
		return nil
	}
	return &id
}

// ParseXFF extracts the originating client from an X-Forwarded-For header,
// which holds a comma separated chain with the client first. An absent
// header returns nil, a present one its first entry.
func ParseXFF(header *string) *string {
	if header == nil {
		return nil
	}
	first := strings.TrimSpace(strings.Split(*header, ",")[0])
	return &first
}

// Ledger is the append-only usage record for request tokens. Every recorded
// use rewrites the owning token's used_to_date from a count of its error
// free entries, inside the same transaction as the entry itself.
type Ledger struct {
	db     *bun.DB
	cfg    Config
	logger Logger
}

// NewLedger creates the usage ledger over the given connection.
func NewLedger(db *bun.DB, cfg Config, logger Logger) *Ledger {
	if logger == nil {
		logger = &defLogger{}
	}
	return &Ledger{db: db, cfg: cfg, logger: logger}
}

// Record writes one use of the token. When useErr is non nil the entry gets
// a companion error log, and entries with an error log never count toward
// max_uses. Returns the entry, or nil when logging is disabled.
func (l *Ledger) Record(ctx context.Context, token *Token, meta RequestMeta, statusCode int, useErr error) (*TokenLog, error) {
	if l.cfg.GetDisableLogs() {
		return nil, nil
	}

	entry := &TokenLog{
		TokenID:    token.ID,
		UserID:     meta.userID(),
		UserAgent:  meta.userAgent(),
		ClientIP:   meta.clientIP(),
		StatusCode: statusCode,
		Timestamp:  time.Now(),
	}

	err := l.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryOperation, "failed to record token use")
		}

		if useErr != nil && l.cfg.GetLogErrors() {
			errLog := newTokenErrorLog(entry, useErr)
			if _, err := tx.NewInsert().Model(errLog).Exec(ctx); err != nil {
				return errors.Wrap(err, errors.CategoryOperation, "failed to record token use error")
			}
		}

		count, err := l.countValidUses(ctx, tx, token.ID)
		if err != nil {
			return err
		}

		if _, err := tx.NewUpdate().
			Model((*Token)(nil)).
			Set("used_to_date = ?", count).
			Where("id = ?", token.ID).
			Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryOperation, "failed to update token use count")
		}

		token.UsedToDate = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// countValidUses counts the ledger entries without an attached error log.
func (l *Ledger) countValidUses(ctx context.Context, tx bun.IDB, tokenID int64) (int, error) {
	count, err := tx.NewSelect().
		Model((*TokenLog)(nil)).
		Where("rtl.token_id = ?", tokenID).
		Where("NOT EXISTS (SELECT 1 FROM request_token_error_logs AS rte WHERE rte.log_id = rtl.id)").
		Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryOperation, "failed to count token uses")
	}
	return count, nil
}
