package requesttoken

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string {
	return &s
}

func TestParseXFF(t *testing.T) {
	tests := []struct {
		name   string
		header *string
		want   *string
	}{
		{"absent header", nil, nil},
		{"empty header", strptr(""), strptr("")},
		{"single entry", strptr("foo"), strptr("foo")},
		{"chain takes first", strptr("foo, bar, baz"), strptr("foo")},
		{"chain trims whitespace", strptr("foo , bar, baz"), strptr("foo")},
		{"real addresses", strptr("8.8.8.8, 123.124.125.126"), strptr("8.8.8.8")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseXFF(tt.header)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestRequestMetaUserAgent(t *testing.T) {
	assert.Equal(t, "unknown", RequestMeta{}.userAgent())
	assert.Equal(t, "curl/8.0", RequestMeta{UserAgent: "curl/8.0"}.userAgent())
}

func TestRequestMetaClientIP(t *testing.T) {
	meta := RequestMeta{
		ForwardedFor: strptr("8.8.8.8, 10.0.0.1"),
		RemoteAddr:   strptr("192.168.1.1"),
	}
	ip := meta.clientIP()
	require.NotNil(t, ip)
	assert.Equal(t, "8.8.8.8", *ip)

	meta = RequestMeta{RemoteAddr: strptr("192.168.1.1")}
	ip = meta.clientIP()
	require.NotNil(t, ip)
	assert.Equal(t, "192.168.1.1", *ip)

	meta = RequestMeta{ForwardedFor: strptr(""), RemoteAddr: strptr("192.168.1.1")}
	ip = meta.clientIP()
	require.NotNil(t, ip)
	assert.Equal(t, "192.168.1.1", *ip)

	assert.Nil(t, RequestMeta{}.clientIP())
}

func TestRequestMetaUserID(t *testing.T) {
	assert.Nil(t, RequestMeta{}.userID())

	userID := uuid.New()
	meta := RequestMeta{User: NewIdentity(userID.String(), "bob", "bob@example.com")}
	got := meta.userID()
	require.NotNil(t, got)
	assert.Equal(t, userID, *got)

	meta = RequestMeta{User: NewIdentity("not-a-uuid", "bob", "bob@example.com")}
	assert.Nil(t, meta.userID())
}

func seedToken(t *testing.T, repo Tokens, maxUses int) *Token {
	t.Helper()
	token := &Token{Scope: "foo", LoginMode: LoginModeNone, MaxUses: maxUses}
	require.NoError(t, repo.Create(context.Background(), token))
	return token
}

func TestLedgerRecordSuccess(t *testing.T) {
	db := setupTestDB(t)
	cfg := Options{SigningKey: "test"}
	repo := NewTokens(db, cfg)
	ledger := NewLedger(db, cfg, nil)
	ctx := context.Background()

	token := seedToken(t, repo, 3)

	meta := RequestMeta{
		UserAgent:    "curl/8.0",
		ForwardedFor: strptr("8.8.8.8, 10.0.0.1"),
	}

	entry, err := ledger.Record(ctx, token, meta, 200, nil)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, token.ID, entry.TokenID)
	assert.Equal(t, "curl/8.0", entry.UserAgent)
	require.NotNil(t, entry.ClientIP)
	assert.Equal(t, "8.8.8.8", *entry.ClientIP)
	assert.Equal(t, 200, entry.StatusCode)

	assert.Equal(t, 1, token.UsedToDate)

	stored, err := repo.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedToDate)
}

func TestLedgerRecordErrorDoesNotCount(t *testing.T) {
	db := setupTestDB(t)
	cfg := Options{SigningKey: "test"}
	repo := NewTokens(db, cfg)
	ledger := NewLedger(db, cfg, nil)
	ctx := context.Background()

	token := seedToken(t, repo, 3)

	_, err := ledger.Record(ctx, token, RequestMeta{}, 200, nil)
	require.NoError(t, err)
	require.Equal(t, 1, token.UsedToDate)

	entry, err := ledger.Record(ctx, token, RequestMeta{}, 403, scopeMismatchError(token, "bar"))
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, 1, token.UsedToDate, "rejected attempt must not count")

	var errLog TokenErrorLog
	require.NoError(t, db.NewSelect().Model(&errLog).Where("log_id = ?", entry.ID).Scan(ctx))
	assert.Equal(t, token.ID, errLog.TokenID)
	assert.Equal(t, TextCodeScopeMismatch, errLog.ErrorType)
	assert.NotEmpty(t, errLog.ErrorMessage)
}

func TestLedgerRecordDisabled(t *testing.T) {
	db := setupTestDB(t)
	cfg := Options{SigningKey: "test", DisableLogs: true}
	repo := NewTokens(db, Options{SigningKey: "test"})
	ledger := NewLedger(db, cfg, nil)
	ctx := context.Background()

	token := seedToken(t, repo, 3)

	entry, err := ledger.Record(ctx, token, RequestMeta{}, 200, nil)
	require.NoError(t, err)
	assert.Nil(t, entry)

	count, err := db.NewSelect().Model((*TokenLog)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLedgerRecordErrorLogsDisabled(t *testing.T) {
	db := setupTestDB(t)
	cfg := Options{SigningKey: "test", DisableErrorLogs: true}
	repo := NewTokens(db, cfg)
	ledger := NewLedger(db, cfg, nil)
	ctx := context.Background()

	token := seedToken(t, repo, 3)

	entry, err := ledger.Record(ctx, token, RequestMeta{}, 403, scopeMismatchError(token, "bar"))
	require.NoError(t, err)
	require.NotNil(t, entry)

	count, err := db.NewSelect().Model((*TokenErrorLog)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// without the error record the attempt is indistinguishable from a
	// valid use, so it counts
	assert.Equal(t, 1, token.UsedToDate)
}
