package requesttoken

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Tokens is the request token store. Tx variants run inside a caller
// provided transaction so issuance and revocation compose with other writes.
type Tokens interface {
	Create(ctx context.Context, token *Token) error
	CreateTx(ctx context.Context, tx bun.IDB, token *Token) error
	Save(ctx context.Context, token *Token) error
	SaveTx(ctx context.Context, tx bun.IDB, token *Token) error
	GetByID(ctx context.Context, id int64) (*Token, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Token, error)
	Expire(ctx context.Context, id int64) error
	ExpireTx(ctx context.Context, tx bun.IDB, id int64) error
}

type tokens struct {
	db  *bun.DB
	cfg Config
}

// NewTokens creates the token store over the given connection.
func NewTokens(db *bun.DB, cfg Config) Tokens {
	return &tokens{db: db, cfg: cfg}
}

func (r *tokens) Create(ctx context.Context, token *Token) error {
	return r.CreateTx(ctx, r.db, token)
}

func (r *tokens) CreateTx(ctx context.Context, tx bun.IDB, token *Token) error {
	r.prepareDefaults(token)

	if err := token.Clean(); err != nil {
		return err
	}

	if _, err := tx.NewInsert().Model(token).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to create request token")
	}

	return nil
}

func (r *tokens) Save(ctx context.Context, token *Token) error {
	return r.SaveTx(ctx, r.db, token)
}

// SaveTx updates a persisted token. The issued_at column is excluded from
// the update set, so the mint timestamp can never drift after creation.
func (r *tokens) SaveTx(ctx context.Context, tx bun.IDB, token *Token) error {
	if token.ID == 0 {
		return r.CreateTx(ctx, tx, token)
	}

	if err := token.Clean(); err != nil {
		return err
	}

	res, err := tx.NewUpdate().
		Model(token).
		Column(
			"scope",
			"login_mode",
			"user_id",
			"expiration_time",
			"not_before_time",
			"data",
			"max_uses",
			"used_to_date",
		).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to save request token")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return tokenNotFoundError(token.ID)
	}

	return nil
}

func (r *tokens) GetByID(ctx context.Context, id int64) (*Token, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *tokens) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Token, error) {
	token := &Token{}
	err := tx.NewSelect().
		Model(token).
		Where("rtk.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenNotFoundError(id)
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load request token")
	}
	return token, nil
}

func (r *tokens) Expire(ctx context.Context, id int64) error {
	return r.ExpireTx(ctx, r.db, id)
}

// ExpireTx back-dates the token expiration so every later use is rejected.
func (r *tokens) ExpireTx(ctx context.Context, tx bun.IDB, id int64) error {
	res, err := tx.NewUpdate().
		Model((*Token)(nil)).
		Set("expiration_time = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to expire request token")
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return tokenNotFoundError(id)
	}

	return nil
}

// prepareDefaults fills the mint-time fields. Session tokens get the
// configured TTL counted from the mint timestamp when no expiry was set.
func (r *tokens) prepareDefaults(token *Token) {
	if token.IssuedAt == nil {
		now := time.Now()
		token.IssuedAt = &now
	}
	if token.MaxUses == 0 {
		token.MaxUses = r.cfg.GetDefaultMaxUses()
	}
	if token.LoginMode == LoginModeSession && token.ExpirationTime == nil {
		exp := token.IssuedAt.Add(SessionTokenTTL(r.cfg))
		token.ExpirationTime = &exp
	}
}
