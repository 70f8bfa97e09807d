package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/apitest"
	"storefront/internal/kvstore"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = model.User{ID: "user-alice", Name: "Alice", Email: "alice@example.com", Role: model.RoleCustomer}

type fixture struct {
	srv     *apitest.Server
	client  *apiclient.Client
	store   *kvstore.MemoryStore
	session *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer(t)
	srv.AddUser(alice, "secret")

	client, err := apiclient.NewClient(srv.URL, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)

	store := kvstore.NewMemoryStore()
	return &fixture{
		srv:     srv,
		client:  client,
		store:   store,
		session: NewSession(client, store, zerolog.Nop()),
	}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	_, err := f.session.Login(context.Background(), model.Credentials{Email: alice.Email, Password: "secret"})
	require.NoError(t, err)
}

func (f *fixture) storedToken(t *testing.T) (string, bool) {
	t.Helper()
	token, ok, err := f.store.Get(context.Background(), kvstore.AccessTokenKey)
	require.NoError(t, err)
	return token, ok
}

func TestSession_Login(t *testing.T) {
	f := newFixture(t)

	user, err := f.session.Login(context.Background(), model.Credentials{Email: alice.Email, Password: "secret"})

	require.NoError(t, err)
	assert.Equal(t, alice, *user)
	assert.True(t, f.session.IsAuthenticated())
	token, ok := f.storedToken(t)
	assert.True(t, ok)
	assert.Equal(t, f.session.AccessToken(), token)
}

func TestSession_Login_InvalidCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.Login(context.Background(), model.Credentials{Email: alice.Email, Password: "wrong"})

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apiclient.ErrorStatus(err))
	assert.Equal(t, "Invalid email or password", apiclient.ErrorMessage(err, "Login failed"))
	assert.False(t, f.session.IsAuthenticated())
	_, ok := f.storedToken(t)
	assert.False(t, ok)
}

func TestSession_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.session.Register(ctx, model.Registration{Name: "Bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)
	assert.True(t, f.session.IsAuthenticated())

	_, err = f.session.Register(ctx, model.Registration{Name: "Alice", Email: alice.Email, Password: "pw"})
	assert.Equal(t, http.StatusConflict, apiclient.ErrorStatus(err))
}

func TestSession_Restore(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, f *fixture)
		wantUser    bool
		wantToken   bool
		wantMe      int
		wantRefresh int
	}{
		{
			name:  "no stored token",
			setup: func(t *testing.T, f *fixture) {},
		},
		{
			name: "stored token accepted",
			setup: func(t *testing.T, f *fixture) {
				f.login(t)
			},
			wantUser:  true,
			wantToken: true,
			wantMe:    1,
		},
		{
			name: "stored token rejected, refresh succeeds",
			setup: func(t *testing.T, f *fixture) {
				f.login(t)
				f.srv.ExpireAccessTokens()
			},
			wantUser:    true,
			wantToken:   true,
			wantMe:      2,
			wantRefresh: 1,
		},
		{
			name: "stored token past exp skips me",
			setup: func(t *testing.T, f *fixture) {
				f.login(t)
				expired := f.srv.IssueExpiredAccessToken(alice.ID)
				require.NoError(t, f.store.Set(context.Background(), kvstore.AccessTokenKey, expired))
			},
			wantUser:    true,
			wantToken:   true,
			wantMe:      1,
			wantRefresh: 1,
		},
		{
			name: "token and refresh rejected",
			setup: func(t *testing.T, f *fixture) {
				f.login(t)
				f.srv.ExpireAccessTokens()
				f.srv.RevokeRefreshTokens()
			},
			wantMe:      1,
			wantRefresh: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			restored := NewSession(f.client, f.store, zerolog.Nop())
			assert.False(t, restored.Ready())

			require.NoError(t, restored.Restore(context.Background()))

			assert.True(t, restored.Ready())
			assert.Equal(t, tt.wantUser, restored.IsAuthenticated())
			_, ok := f.storedToken(t)
			assert.Equal(t, tt.wantToken, ok)
			assert.Equal(t, tt.wantToken, restored.AccessToken() != "")
			assert.Equal(t, tt.wantMe, f.srv.Calls(http.MethodGet, "/api/auth/me"))
			assert.Equal(t, tt.wantRefresh, f.srv.Calls(http.MethodPost, "/api/auth/refresh"))
		})
	}
}

func TestSession_AuthedFetch_RetriesOnceAfterRefresh(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	before := f.session.AccessToken()
	f.srv.ExpireAccessTokens()

	var out struct {
		Cart model.Cart `json:"cart"`
	}
	err := f.session.AuthedFetch(context.Background(), http.MethodGet, "/api/cart", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, "cart-"+alice.ID, out.Cart.ID)
	assert.Equal(t, 1, f.srv.Calls(http.MethodPost, "/api/auth/refresh"))
	assert.Equal(t, 2, f.srv.Calls(http.MethodGet, "/api/cart"))
	assert.NotEqual(t, before, f.session.AccessToken())

	stored, _ := f.storedToken(t)
	assert.Equal(t, f.session.AccessToken(), stored)
}

func TestSession_AuthedFetch_SharedRefreshSurvivesCancelledCaller(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.ExpireAccessTokens()
	release := f.srv.Hold(http.MethodPost, "/api/auth/refresh")
	t.Cleanup(release)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		errA <- f.session.AuthedFetch(ctxA, http.MethodGet, "/api/cart", nil, nil)
	}()
	require.Eventually(t, func() bool {
		return f.srv.Calls(http.MethodPost, "/api/auth/refresh") == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	var out struct {
		Cart model.Cart `json:"cart"`
	}
	errB := make(chan error, 1)
	go func() {
		errB <- f.session.AuthedFetch(context.Background(), http.MethodGet, "/api/cart", nil, &out)
	}()
	require.Eventually(t, func() bool {
		return f.srv.Calls(http.MethodGet, "/api/cart") == 2
	}, 2*time.Second, 5*time.Millisecond)
	// let the second caller join the refresh that is still parked
	time.Sleep(50 * time.Millisecond)
	release()

	select {
	case err := <-errB:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, "cart-"+alice.ID, out.Cart.ID)
	assert.Equal(t, 1, f.srv.Calls(http.MethodPost, "/api/auth/refresh"))
	assert.Equal(t, 3, f.srv.Calls(http.MethodGet, "/api/cart"))
	assert.True(t, f.session.IsAuthenticated())
}

func TestSession_AuthedFetch_SecondUnauthorizedPropagates(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.FailNext(http.MethodGet, "/api/cart", http.StatusUnauthorized, "Unauthorized")
	f.srv.FailNext(http.MethodGet, "/api/cart", http.StatusUnauthorized, "Still unauthorized")

	err := f.session.AuthedFetch(context.Background(), http.MethodGet, "/api/cart", nil, nil)

	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))
	assert.Equal(t, "Still unauthorized", apiclient.ErrorMessage(err, ""))
	assert.Equal(t, 1, f.srv.Calls(http.MethodPost, "/api/auth/refresh"))
	assert.Equal(t, 2, f.srv.Calls(http.MethodGet, "/api/cart"))
}

func TestSession_AuthedFetch_OtherErrorsSkipRefresh(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.FailNext(http.MethodPost, "/api/cart/items", http.StatusBadRequest, "Not enough stock")

	err := f.session.AuthedFetch(context.Background(), http.MethodPost, "/api/cart/items",
		map[string]any{"productId": "P1", "quantity": 1}, nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apiclient.ErrorStatus(err))
	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, "/api/auth/refresh"))
	assert.Equal(t, 1, f.srv.Calls(http.MethodPost, "/api/cart/items"))
}

func TestSession_AuthedFetch_RefreshFailureStops(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.ExpireAccessTokens()
	f.srv.RevokeRefreshTokens()

	err := f.session.AuthedFetch(context.Background(), http.MethodGet, "/api/cart", nil, nil)

	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))
	assert.Equal(t, 1, f.srv.Calls(http.MethodGet, "/api/cart"))
}

func TestSession_Logout(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.NoError(t, f.session.Logout(context.Background()))

	assert.False(t, f.session.IsAuthenticated())
	assert.Empty(t, f.session.AccessToken())
	_, ok := f.storedToken(t)
	assert.False(t, ok)

	assert.Error(t, f.session.Refresh(context.Background()), "refresh cookie is gone after logout")
}

func TestSession_Logout_FailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.FailNext(http.MethodPost, "/api/auth/logout", http.StatusInternalServerError, "boom")

	err := f.session.Logout(context.Background())

	require.Error(t, err)
	assert.True(t, f.session.IsAuthenticated())
	_, ok := f.storedToken(t)
	assert.True(t, ok)
}

func TestSession_RefreshMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.session.RefreshMe(ctx), model.ErrUnauthenticated)

	f.login(t)
	require.NoError(t, f.session.RefreshMe(ctx))
	assert.Equal(t, 0, f.srv.Calls(http.MethodPost, "/api/auth/refresh"))

	f.srv.ExpireAccessTokens()
	require.NoError(t, f.session.RefreshMe(ctx))
	assert.Equal(t, 1, f.srv.Calls(http.MethodPost, "/api/auth/refresh"))
	assert.True(t, f.session.IsAuthenticated())
}

func TestSession_Claims(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.session.Claims())

	f.login(t)
	claims := f.session.Claims()
	require.NotNil(t, claims)
	assert.Equal(t, alice.ID, claims.SubjectID())
	assert.False(t, claims.Expired(time.Now()))
}
