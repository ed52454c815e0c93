package authapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loyaltyhub/go-auth-client/apiclient"
	"github.com/loyaltyhub/go-auth-client/authapi"
	"github.com/loyaltyhub/go-auth-client/internal/logging"
	"github.com/stretchr/testify/require"
)

const testToken = `{"access_token":"t1","token_type":"bearer","expires_in":3600,"user_id":1,"role":"user"}`

type testFixture struct {
	mux    *http.ServeMux
	server *httptest.Server
	client *authapi.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	api, err := apiclient.New(server.URL, logging.Discard())
	require.NoError(t, err)

	client, err := authapi.New(api)
	require.NoError(t, err)

	return &testFixture{mux: mux, server: server, client: client}
}

func (f *testFixture) respond(path string, status int, body string) {
	f.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

func TestLoginReturnsToken(t *testing.T) {
	f := setupTestFixture(t)

	var gotBody map[string]any
	f.mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testToken)
	})

	token, err := f.client.Login(context.Background(), authapi.LoginInput{PhoneNumber: "5551234567"})
	require.NoError(t, err)
	require.Equal(t, "t1", token.AccessToken)
	require.Equal(t, "bearer", token.TokenType)
	require.EqualValues(t, 3600, token.ExpiresIn)

	require.Equal(t, "5551234567", gotBody["phone_number"])
	_, hasPassword := gotBody["password"]
	require.False(t, hasPassword, "empty password must be omitted from the body")
}

func TestLoginWrapsFailureWithDomainCode(t *testing.T) {
	f := setupTestFixture(t)
	f.respond("/auth/login", http.StatusUnauthorized, `{"detail":"invalid credentials"}`)

	_, err := f.client.Login(context.Background(), authapi.LoginInput{PhoneNumber: "5551234567", Password: "nope"})
	require.Error(t, err)

	domainErr, ok := authapi.AsError(err)
	require.True(t, ok)
	require.Equal(t, authapi.CodeLogin, domainErr.Code)
	require.Equal(t, http.StatusUnauthorized, domainErr.Status)

	apiErr, ok := apiclient.AsError(err)
	require.True(t, ok)
	require.Equal(t, apiclient.CodeUnauthorized, apiErr.Code)
}

func TestRegisterWrapsFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.respond("/auth/register", http.StatusUnprocessableEntity, `{"detail":"phone already registered"}`)

	_, err := f.client.Register(context.Background(), authapi.RegisterInput{
		PhoneNumber: "5551234567",
		FullName:    "Jane",
	})
	require.Error(t, err)

	domainErr, ok := authapi.AsError(err)
	require.True(t, ok)
	require.Equal(t, authapi.CodeRegistration, domainErr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, domainErr.Status)
}

func TestDomainStatusDefaultsTo500WithoutHTTPStatus(t *testing.T) {
	f := setupTestFixture(t)
	f.server.Close() // force a connectivity failure

	_, err := f.client.Login(context.Background(), authapi.LoginInput{PhoneNumber: "5551234567"})
	require.Error(t, err)

	domainErr, ok := authapi.AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusInternalServerError, domainErr.Status)
}

func TestCurrentUserSendsBearerToken(t *testing.T) {
	f := setupTestFixture(t)

	f.mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":1,"phone_number":"5551234567","full_name":"Jane","role":"user","is_active":true,"phone_verified":true,"email_verified":false}`)
	})

	user, err := f.client.CurrentUser(context.Background(), "t1")
	require.NoError(t, err)
	require.EqualValues(t, 1, user.ID)
	require.Equal(t, "Jane", user.FullName)
	require.Empty(t, user.Email)
	require.Nil(t, user.EstablishmentID)
}

func TestCurrentUserUnauthorized(t *testing.T) {
	f := setupTestFixture(t)
	f.respond("/auth/me", http.StatusUnauthorized, `{"detail":"token expired"}`)

	_, err := f.client.CurrentUser(context.Background(), "stale")
	require.Error(t, err)

	domainErr, ok := authapi.AsError(err)
	require.True(t, ok)
	require.Equal(t, authapi.CodeGetUser, domainErr.Code)
	require.Equal(t, http.StatusUnauthorized, domainErr.Status)
}

func TestPhoneOTPFlow(t *testing.T) {
	f := setupTestFixture(t)
	f.respond("/auth/phone/request-otp", http.StatusOK, `{"message":"code sent","expires_in":300}`)
	f.respond("/auth/phone/verify-otp", http.StatusOK, testToken)

	otp, err := f.client.RequestPhoneOTP(context.Background(), "5551234567")
	require.NoError(t, err)
	require.Equal(t, "code sent", otp.Message)
	require.EqualValues(t, 300, otp.ExpiresIn)

	token, err := f.client.VerifyPhoneOTP(context.Background(), authapi.OTPVerifyInput{
		PhoneNumber: "5551234567",
		Code:        "123456",
	})
	require.NoError(t, err)
	require.Equal(t, "t1", token.AccessToken)
}

func TestGoogleFlow(t *testing.T) {
	f := setupTestFixture(t)
	f.respond("/auth/google/url", http.StatusOK, `{"auth_url":"https://accounts.google.com/o/oauth2/auth?x=1"}`)
	f.respond("/auth/google/callback", http.StatusOK, testToken)

	authURL, err := f.client.GoogleAuthURL(context.Background())
	require.NoError(t, err)
	require.Contains(t, authURL.AuthURL, "accounts.google.com")

	token, err := f.client.GoogleAuthCallback(context.Background(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "t1", token.AccessToken)
}
