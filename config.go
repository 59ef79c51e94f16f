package requesttoken

import "time"

const (
	// DefaultQueryKey is the query-string / form-field key carrying the token.
	DefaultQueryKey = "rt"
	// DefaultSessionTokenExpiry is the Session-mode auto-fill TTL in minutes.
	DefaultSessionTokenExpiry = 10
	// DefaultMaxUses is the use cap applied when none is supplied.
	DefaultMaxUses = 1
	// DefaultSigningMethod is the JWT signing algorithm.
	DefaultSigningMethod = "HS256"
)

// Config holds request token options. It is read once at startup and never
// mutated afterwards.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetQueryKey() string
	// GetSessionTokenExpiry returns the Session-mode TTL in minutes.
	GetSessionTokenExpiry() int
	GetDefaultMaxUses() int
	// GetDisableLogs turns off usage logging wholesale.
	GetDisableLogs() bool
	// GetLogErrors controls whether rejected attempts attach an error record.
	GetLogErrors() bool
}

// Options is an immutable Config implementation. The zero value of every
// field falls back to the package default; only SigningKey is mandatory.
type Options struct {
	SigningKey         string
	SigningMethod      string
	QueryKey           string
	SessionTokenExpiry int
	MaxUses            int
	DisableLogs        bool
	DisableErrorLogs   bool
}

var _ Config = Options{}

func (o Options) GetSigningKey() string { return o.SigningKey }

func (o Options) GetSigningMethod() string {
	if o.SigningMethod == "" {
		return DefaultSigningMethod
	}
	return o.SigningMethod
}

func (o Options) GetQueryKey() string {
	if o.QueryKey == "" {
		return DefaultQueryKey
	}
	return o.QueryKey
}

func (o Options) GetSessionTokenExpiry() int {
	if o.SessionTokenExpiry <= 0 {
		return DefaultSessionTokenExpiry
	}
	return o.SessionTokenExpiry
}

func (o Options) GetDefaultMaxUses() int {
	if o.MaxUses <= 0 {
		return DefaultMaxUses
	}
	return o.MaxUses
}

func (o Options) GetDisableLogs() bool { return o.DisableLogs }

func (o Options) GetLogErrors() bool { return !o.DisableErrorLogs }

// SessionTokenTTL returns the configured Session-mode TTL as a duration.
func SessionTokenTTL(cfg Config) time.Duration {
	return time.Duration(cfg.GetSessionTokenExpiry()) * time.Minute
}
