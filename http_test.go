package auth_test

import (
	"testing"

	"github.com/goliatone/go-router"
	auth "github.com/mercatohq/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func guardConfig() *auth.EnvConfig {
	return &auth.EnvConfig{
		RejectedRouteKey:     "rejected_route",
		RejectedRouteDefault: "/",
	}
}

func TestRouteGuardRequiresStore(t *testing.T) {
	_, err := auth.NewRouteGuard(nil, guardConfig())
	assert.Error(t, err)
}

func TestRouteGuardAdmitsAllowedRole(t *testing.T) {
	store := auth.NewStore()
	store.Update(
		auth.WithUser(&auth.Principal{ID: "usr-1"}),
		auth.WithRole(auth.RoleAdmin),
		auth.WithLoading(false),
	)

	guard, err := auth.NewRouteGuard(store, guardConfig())
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("Path").Return("/admin")
	ctx.On("Locals", auth.StateContextKey, mock.Anything).Return(nil)

	handled := false
	handler := guard.Protected(auth.RoleAdmin)(func(router.Context) error {
		handled = true
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.True(t, handled)
}

func TestRouteGuardRedirectsAnonymousToLogin(t *testing.T) {
	store := auth.NewStore()
	store.Update(auth.WithLoading(false))

	guard, err := auth.NewRouteGuard(store, guardConfig())
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("Path").Return("/admin")
	ctx.On("Method").Return("GET")
	ctx.On("OriginalURL").Return("/admin?tab=orders")
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "rejected_route" && c.Value == "/admin?tab=orders"
	})).Return()
	ctx.On("Redirect", "/login", []int{302}).Return(nil)

	handler := guard.Protected(auth.RoleAdmin)(func(router.Context) error {
		t.Fatal("handler must not run")
		return nil
	})

	require.NoError(t, handler(ctx))
	ctx.AssertExpectations(t)
}

func TestRouteGuardSendsWrongRoleToRoot(t *testing.T) {
	store := auth.NewStore()
	store.Update(
		auth.WithUser(&auth.Principal{ID: "usr-1"}),
		auth.WithRole(auth.RoleBuyer),
		auth.WithLoading(false),
	)

	guard, err := auth.NewRouteGuard(store, guardConfig())
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("Path").Return("/admin")
	ctx.On("Method").Return("POST")
	ctx.On("Redirect", "/", []int{303}).Return(nil)

	handler := guard.Protected(auth.RoleAdmin)(func(router.Context) error {
		t.Fatal("handler must not run")
		return nil
	})

	require.NoError(t, handler(ctx))

	// wrong role keeps no continuation cookie: there is nothing to resume
	ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	ctx.AssertExpectations(t)
}

func TestRouteGuardAdmitsWhileLoading(t *testing.T) {
	store := auth.NewStore() // still hydrating

	guard, err := auth.NewRouteGuard(store, guardConfig())
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("Path").Return("/account")
	ctx.On("Locals", auth.StateContextKey, mock.Anything).Return(nil)

	handled := false
	handler := guard.Protected()(func(router.Context) error {
		handled = true
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.True(t, handled)
}

func TestGetRedirectPopsCookie(t *testing.T) {
	store := auth.NewStore()
	guard, err := auth.NewRouteGuard(store, guardConfig())
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("Cookies", "rejected_route").Return("/orders/42")
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "rejected_route" && c.Value == ""
	})).Return()

	assert.Equal(t, "/orders/42", guard.GetRedirect(ctx, "/"))
	ctx.AssertExpectations(t)
}

func TestGetRedirectFallsBackToDefault(t *testing.T) {
	store := auth.NewStore()
	guard, err := auth.NewRouteGuard(store, guardConfig())
	require.NoError(t, err)

	ctx := &MockContext{}
	ctx.On("Cookies", "rejected_route").Return("")

	assert.Equal(t, "/", guard.GetRedirect(ctx, "/"))
}
