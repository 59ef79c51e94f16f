package tokenware

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	requesttoken "github.com/goliatone/go-request-token"
)

// ErrTokenMissing is returned when a guarded route receives no token.
var ErrTokenMissing = errors.New("request token missing", errors.CategoryAuth).
	WithTextCode("request_token_missing").
	WithCode(errors.CodeUnauthorized)

// Engine runs the token use pipeline. Satisfied by requesttoken.Validator.
type Engine interface {
	Use(ctx context.Context, raw, scope string, meta requesttoken.RequestMeta, binder requesttoken.IdentityBinder) (*requesttoken.Token, requesttoken.Identity, error)
	Record(ctx context.Context, token *requesttoken.Token, meta requesttoken.RequestMeta, statusCode int) (*requesttoken.TokenLog, error)
}

type Config struct {
	// Scope the guarded route requires; tokens minted for any other scope
	// are rejected.
	Scope string
	// Required rejects requests without a token. When false the request
	// passes through untouched.
	Required bool
	// SkipLog disables the post-handler ledger write for successful uses.
	SkipLog bool
	// QueryKey overrides the query/body parameter holding the token.
	QueryKey string
	// ContextKey overrides the Locals key the validated token is stored under.
	ContextKey string
	Filter     func(router.Context) bool
	// Engine is required
	Engine Engine
	// Binder applies the token login mode to the request. Required for
	// routes guarded by Request or Session tokens.
	Binder requesttoken.IdentityBinder
	// CurrentIdentity reports the identity already authenticated on the
	// request, or nil.
	CurrentIdentity func(router.Context) requesttoken.Identity
	// RemoteAddr reports the peer socket address, used as the client IP
	// fallback when no X-Forwarded-For header is present.
	RemoteAddr   func(router.Context) string
	ErrorHandler router.ErrorHandler
	Logger       requesttoken.Logger
}

// New builds the middleware guarding a route with request token validation.
// The token is read from the query string first, then from a form or JSON
// body. After the handler runs, the use is recorded in the ledger with the
// handler outcome.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw := ExtractRawToken(ctx, cfg.QueryKey)
			if raw == "" {
				if cfg.Required {
					return cfg.ErrorHandler(ctx, ErrTokenMissing)
				}
				return ctx.Next()
			}

			meta := requestMeta(ctx, cfg)

			token, identity, err := cfg.Engine.Use(ctx.Context(), raw, cfg.Scope, meta, cfg.Binder)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)

			stdCtx := requesttoken.WithToken(ctx.Context(), token)
			stdCtx = requesttoken.WithIdentity(stdCtx, identity)
			ctx.SetContext(stdCtx)

			meta.User = identity

			err = ctx.Next()

			if !cfg.SkipLog {
				statusCode := router.StatusOK
				if err != nil {
					statusCode = router.StatusInternalServerError
				}
				if _, lerr := cfg.Engine.Record(ctx.Context(), token, meta, statusCode); lerr != nil {
					cfg.Logger.Error("failed to record use of %s: %v", token, lerr)
				}
			}

			return err
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Engine == nil {
		panic("RTKN: token middleware configuration: Engine is required.")
	}

	if cfg.QueryKey == "" {
		cfg.QueryKey = requesttoken.DefaultQueryKey
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "request_token"
	}

	if cfg.Logger == nil {
		cfg.Logger = requesttoken.NewDefaultLogger()
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler(cfg.Logger)
	}

	return cfg
}

// ExtractRawToken pulls the raw token from the request. The query string
// wins; otherwise GET and POST bodies are checked, decoded as JSON or as a
// form depending on the content type.
func ExtractRawToken(ctx router.Context, key string) string {
	if raw := ctx.Query(key, ""); raw != "" {
		return raw
	}

	method := ctx.Method()
	if method != string(router.GET) && method != string(router.POST) {
		return ""
	}

	return extractFromBody(ctx.Body(), ctx.GetString("Content-Type", ""), key)
}

func extractFromBody(body []byte, contentType, key string) string {
	if len(body) == 0 {
		return ""
	}

	if strings.Contains(contentType, "application/json") {
		payload := map[string]any{}
		if err := json.Unmarshal(body, &payload); err != nil {
			return ""
		}
		raw, _ := payload[key].(string)
		return raw
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return ""
	}
	return values.Get(key)
}

func requestMeta(ctx router.Context, cfg Config) requesttoken.RequestMeta {
	meta := requesttoken.RequestMeta{
		UserAgent: ctx.GetString("User-Agent", ""),
	}

	if xff := ctx.GetString("X-Forwarded-For", ""); xff != "" {
		meta.ForwardedFor = &xff
	}

	if cfg.RemoteAddr != nil {
		if addr := cfg.RemoteAddr(ctx); addr != "" {
			meta.RemoteAddr = &addr
		}
	}

	if cfg.CurrentIdentity != nil {
		meta.User = cfg.CurrentIdentity(ctx)
	}

	return meta
}

func defaultErrorHandler(logger requesttoken.Logger) router.ErrorHandler {
	return func(c router.Context, err error) error {
		richErr := requesttoken.AsRichError(err)

		logger.Info(
			"token middleware rejected request: %s text_code=%s details=%s",
			richErr.Message,
			richErr.TextCode,
			print.MaybePrettyJSON(richErr.Metadata),
		)

		statusCode := richErr.Code
		if statusCode == 0 {
			statusCode = router.StatusInternalServerError
		}

		return c.JSON(statusCode, map[string]any{
			"error":     richErr.Message,
			"text_code": richErr.TextCode,
		})
	}
}
