package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGuard enforces the redirect policy on HTTP routes. It reads the
// current auth state from the session store and applies the same pure
// decision the navigation layer uses, so both surfaces stay in agreement.
type RouteGuard struct {
	store        *Store
	cfg          Config
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error // TODO: make functions
}

// NewRouteGuard creates a guard bound to the given session store.
func NewRouteGuard(store *Store, cfg Config) (*RouteGuard, error) {
	if store == nil {
		return nil, errors.New("route guard requires a session store", errors.CategoryBadInput)
	}

	g := &RouteGuard{
		store:  store,
		cfg:    cfg,
		Logger: defLogger{},
	}

	g.ErrorHandler = g.defaultErrHandler

	return g, nil
}

// Protected returns middleware admitting only authenticated principals whose
// role appears in allowed. An empty allowed list admits any authenticated
// principal.
func (g *RouteGuard) Protected(allowed ...Role) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			state := g.store.State()

			decision := DecideRouteAccess(state, ctx.Path(), allowed)
			if decision == nil {
				ctx.Locals(StateContextKey, state)
				return hf(ctx)
			}

			g.Logger.Debug(
				"Route guard rejecting request",
				"path", ctx.Path(),
				"target", decision.Target,
				"state", print.MaybePrettyJSON(state),
			)

			if decision.Target == LoginPath {
				g.SetRedirect(ctx)
			}

			statusCode := fiber.StatusSeeOther
			if ctx.Method() == string(router.GET) {
				statusCode = fiber.StatusFound
			}
			return ctx.Redirect(decision.Target, statusCode)
		}
	}
}

// GetRedirect pops the continuation cookie set when an unauthenticated
// request was bounced to the login page. Falls back to def when no cookie is
// present.
func (g *RouteGuard) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

// GetRedirectOrDefault pops the continuation cookie, trying the Referer
// header and then the configured default.
func (g *RouteGuard) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = g.cfg.GetRejectedRouteDefault()
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

// SetRedirect records the rejected URL so the login flow can resume it after
// the principal authenticates.
func (g *RouteGuard) SetRedirect(ctx router.Context) {
	rejectedRoute := g.cfg.GetRejectedRouteKey()

	g.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	g.Logger.Info(
		"Route guard error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		g.SetRedirect(c)
		statusCode := fiber.StatusSeeOther
		if c.Method() == string(router.GET) {
			statusCode = fiber.StatusFound
		}
		return c.Redirect(LoginPath, statusCode)
	default:
		return c.JSON(richErr.Code, map[string]any{
			"error": richErr.Message,
		})
	}
}
