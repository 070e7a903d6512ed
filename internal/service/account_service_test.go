package service

import (
	"context"
	"testing"

	"sherise/internal/middleware"
	"sherise/internal/models"
	"sherise/internal/repository"
	"sherise/internal/store"
	"sherise/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-12345678901234567890123456789012"

func newAccountService(t *testing.T) (*AccountService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	accounts := repository.NewAccountRepository(testutil.NewTestDB(t))
	return NewAccountService(accounts, env.store, env.profiles(), testJWTSecret), env
}

func TestParseSignup(t *testing.T) {
	flat, err := ParseSignup([]byte(`{"name":"Asha","email":"A@x.com","password":"secret1","city":"Pune","business":"Food"}`))
	require.NoError(t, err)
	assert.Equal(t, "Asha", flat.Name)
	assert.Equal(t, "secret1", flat.Password)
	assert.Equal(t, "Pune", flat.Profile.City)

	nested, err := ParseSignup([]byte(`{
		"account": {"fullName": "Lata Nair", "email": "lata@x.com", "password": "secret2"},
		"profile": {"businessName": "Spice Co", "cityState": "Kochi"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Lata Nair", nested.Name)
	assert.Equal(t, "lata@x.com", nested.Email)
	assert.Equal(t, "secret2", nested.Password)
	assert.Equal(t, "Spice Co", nested.Profile.Business)

	_, err = ParseSignup([]byte(`not json`))
	assert.Equal(t, 400, models.StatusFor(err))
}

func TestSignupLoginLogout(t *testing.T) {
	svc, env := newAccountService(t)
	ctx := context.Background()

	in, err := ParseSignup([]byte(`{"name":"Asha","email":"Asha@Example.com ","password":"secret1","business":"Food"}`))
	require.NoError(t, err)
	res, err := svc.Signup(ctx, in)
	require.NoError(t, err)

	claims, err := middleware.ParseToken(testJWTSecret, res.Token)
	require.NoError(t, err)
	uid := claims.UserID
	assert.Equal(t, models.IDFromUint(uid), res.Profile.ID)
	assert.Equal(t, "asha@example.com", res.Profile.Email)

	auth := store.Read(ctx, env.store, store.UserScope(uid), models.SliceAuth, models.AuthState{})
	assert.True(t, auth.Authenticated)

	profiles := env.profiles()
	_, err = profiles.Get(ctx, res.Profile.ID)
	require.NoError(t, err, "signup adds the profile to the directory")

	require.NoError(t, svc.Logout(ctx, uid))
	_, err = profiles.Me(ctx, uid)
	require.ErrorIs(t, err, ErrProfileNotFound)
	assert.False(t, store.Read(ctx, env.store, store.UserScope(uid), models.SliceAuth, models.AuthState{}).Authenticated)

	again, err := svc.Login(ctx, "ASHA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", again.Profile.Name)
	me, err := profiles.Me(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, me.ID)
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newAccountService(t)

	for _, in := range []SignupInput{
		{Email: "a@x.com", Password: "secret1"},
		{Name: "A", Password: "secret1"},
		{Name: "A", Email: "a@x.com", Password: "123"},
	} {
		_, err := svc.Signup(context.Background(), in)
		assert.Equal(t, 400, models.StatusFor(err))
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, SignupInput{Name: "B", Email: "A@X.com", Password: "secret2"})
	assert.Equal(t, 409, models.StatusFor(err))
}

func TestLogin_Rejections(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@x.com", "wrong-password")
	assert.Equal(t, 401, models.StatusFor(err))

	_, err = svc.Login(ctx, "nobody@x.com", "secret1")
	assert.Equal(t, 401, models.StatusFor(err), "unknown emails are not auto-registered")
}
