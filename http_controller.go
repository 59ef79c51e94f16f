package requesttoken

import (
	"strconv"

	"github.com/goliatone/go-router"
)

// RegisterTokenRoutes mounts the token administration endpoints. Hosts
// should guard these routes with their own operator authentication.
func RegisterTokenRoutes[T any](app router.Router[T], opts ...TokenControllerOption) {
	controller := NewTokenController(opts...)

	app.Post(controller.Routes.Tokens, controller.Create).
		SetName("tokens.create")

	app.Get(controller.Routes.Tokens+"/:id", controller.Show).
		SetName("tokens.show")

	app.Post(controller.Routes.Tokens+"/:id/expire", controller.Expire).
		SetName("tokens.expire")
}

type TokenControllerRoutes struct {
	Tokens string
}

type TokenController struct {
	Logger       Logger
	Repo         RepositoryManager
	Provider     IdentityProvider
	Encoder      TokenEncoder
	Routes       *TokenControllerRoutes
	ErrorHandler router.ErrorHandler
}

type TokenControllerOption func(*TokenController) *TokenController

func NewTokenController(opts ...TokenControllerOption) *TokenController {
	c := &TokenController{
		Logger: defLogger{},
		Routes: &TokenControllerRoutes{
			Tokens: "/tokens",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.errorHandler
	}

	return c
}

func WithControllerLogger(logger Logger) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		c.Repo = repo
		return c
	}
}

func WithControllerProvider(provider IdentityProvider) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		c.Provider = provider
		return c
	}
}

func WithControllerEncoder(encoder TokenEncoder) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		c.Encoder = encoder
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		c.ErrorHandler = handler
		return c
	}
}

// Create mints a token and returns it along with its signed form.
func (c *TokenController) Create(ctx router.Context) error {
	msg := IssueTokenMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return c.ErrorHandler(ctx, annotate(ErrTokenInvalid, "could not parse token request", nil))
	}

	handler := NewIssueTokenHandler(c.Repo, c.Provider, c.Logger)
	token, err := handler.Execute(ctx.Context(), msg)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	raw, err := token.JWT(c.Encoder)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": token,
		"jwt":   raw,
	})
}

// Show returns a stored token with its use count.
func (c *TokenController) Show(ctx router.Context) error {
	id, err := c.tokenID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	token, err := c.Repo.Tokens().GetByID(ctx.Context(), id)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": token,
	})
}

// Expire revokes the token immediately.
func (c *TokenController) Expire(ctx router.Context) error {
	id, err := c.tokenID(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	handler := NewExpireTokenHandler(c.Repo)
	if err := handler.Execute(ctx.Context(), ExpireTokenMessage{TokenID: id}); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"expired": id,
	})
}

func (c *TokenController) tokenID(ctx router.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, annotate(ErrTokenInvalid, "token id must be an integer", map[string]any{
			"id": ctx.Param("id"),
		})
	}
	return id, nil
}

func (c *TokenController) errorHandler(ctx router.Context, err error) error {
	richErr := AsRichError(err)

	c.Logger.Error("token controller error: %s text_code=%s", richErr.Message, richErr.TextCode)

	statusCode := richErr.Code
	if statusCode == 0 {
		statusCode = router.StatusInternalServerError
	}

	return ctx.JSON(statusCode, map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
