package authapi

import (
	"context"
	"net/http"

	"github.com/loyaltyhub/go-auth-client/apiclient"
	"github.com/pkg/errors"
)

const basePath = "/auth"

// Requester is the part of the request executor the auth client depends on.
type Requester interface {
	Get(ctx context.Context, endpoint string, opts *apiclient.RequestOptions) (*apiclient.Response, error)
	Post(ctx context.Context, endpoint string, body any, opts *apiclient.RequestOptions) (*apiclient.Response, error)
}

// Client provides typed wrappers over the authentication endpoints. Every
// failure is wrapped in an *Error carrying the operation's domain code.
type Client struct {
	api Requester
}

// New creates an auth API client on top of a request executor.
func New(api Requester) (*Client, error) {
	if api == nil {
		return nil, errors.New("[New] api requester is required")
	}
	return &Client{api: api}, nil
}

// Register creates a new account and returns its first token.
func (c *Client) Register(ctx context.Context, input RegisterInput) (TokenResponse, error) {
	var token TokenResponse
	resp, err := c.api.Post(ctx, basePath+"/register", input, nil)
	if err != nil {
		return TokenResponse{}, wrap(err, CodeRegistration, "Registration failed. Please try again.")
	}
	if err := resp.JSON(&token); err != nil {
		return TokenResponse{}, wrap(err, CodeRegistration, "Registration failed. Please try again.")
	}
	return token, nil
}

// Login authenticates with a phone number and optional password.
func (c *Client) Login(ctx context.Context, input LoginInput) (TokenResponse, error) {
	var token TokenResponse
	resp, err := c.api.Post(ctx, basePath+"/login", input, nil)
	if err != nil {
		return TokenResponse{}, wrap(err, CodeLogin, "Login failed. Please check your credentials.")
	}
	if err := resp.JSON(&token); err != nil {
		return TokenResponse{}, wrap(err, CodeLogin, "Login failed. Please check your credentials.")
	}
	return token, nil
}

// LoginWithEmail authenticates with an email address and password.
func (c *Client) LoginWithEmail(ctx context.Context, input EmailLoginInput) (TokenResponse, error) {
	var token TokenResponse
	resp, err := c.api.Post(ctx, basePath+"/email/login", input, nil)
	if err != nil {
		return TokenResponse{}, wrap(err, CodeEmailLogin, "Login failed. Please check your credentials.")
	}
	if err := resp.JSON(&token); err != nil {
		return TokenResponse{}, wrap(err, CodeEmailLogin, "Login failed. Please check your credentials.")
	}
	return token, nil
}

// RequestPhoneOTP asks the server to send a one-time code to the phone.
func (c *Client) RequestPhoneOTP(ctx context.Context, phoneNumber string) (OTPResponse, error) {
	var otp OTPResponse
	resp, err := c.api.Post(ctx, basePath+"/phone/request-otp", OTPRequestInput{PhoneNumber: phoneNumber}, nil)
	if err != nil {
		return OTPResponse{}, wrap(err, CodeOTPRequest, "Failed to send verification code.")
	}
	if err := resp.JSON(&otp); err != nil {
		return OTPResponse{}, wrap(err, CodeOTPRequest, "Failed to send verification code.")
	}
	return otp, nil
}

// VerifyPhoneOTP exchanges a one-time code for a token.
func (c *Client) VerifyPhoneOTP(ctx context.Context, input OTPVerifyInput) (TokenResponse, error) {
	var token TokenResponse
	resp, err := c.api.Post(ctx, basePath+"/phone/verify-otp", input, nil)
	if err != nil {
		return TokenResponse{}, wrap(err, CodeOTPVerify, "Verification failed. Please check the code.")
	}
	if err := resp.JSON(&token); err != nil {
		return TokenResponse{}, wrap(err, CodeOTPVerify, "Verification failed. Please check the code.")
	}
	return token, nil
}

// GoogleAuthURL fetches the Google authorization URL from the server.
func (c *Client) GoogleAuthURL(ctx context.Context) (GoogleAuthURL, error) {
	var authURL GoogleAuthURL
	resp, err := c.api.Get(ctx, basePath+"/google/url", nil)
	if err != nil {
		return GoogleAuthURL{}, wrap(err, CodeGoogleAuthURL, "Failed to get Google authorization URL.")
	}
	if err := resp.JSON(&authURL); err != nil {
		return GoogleAuthURL{}, wrap(err, CodeGoogleAuthURL, "Failed to get Google authorization URL.")
	}
	return authURL, nil
}

// GoogleAuthCallback exchanges Google's authorization code for a token.
func (c *Client) GoogleAuthCallback(ctx context.Context, code string) (TokenResponse, error) {
	var token TokenResponse
	resp, err := c.api.Post(ctx, basePath+"/google/callback", GoogleAuthRequest{Code: code}, nil)
	if err != nil {
		return TokenResponse{}, wrap(err, CodeGoogleAuth, "Google authentication failed.")
	}
	if err := resp.JSON(&token); err != nil {
		return TokenResponse{}, wrap(err, CodeGoogleAuth, "Google authentication failed.")
	}
	return token, nil
}

// CurrentUser fetches the profile behind the bearer token. An invalid or
// expired token surfaces with UNAUTHORIZED semantics from the executor.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	opts := &apiclient.RequestOptions{
		Headers: http.Header{"Authorization": []string{"Bearer " + token}},
	}

	var user User
	resp, err := c.api.Get(ctx, basePath+"/me", opts)
	if err != nil {
		return User{}, wrap(err, CodeGetUser, "Failed to get user information.")
	}
	if err := resp.JSON(&user); err != nil {
		return User{}, wrap(err, CodeGetUser, "Failed to get user information.")
	}
	return user, nil
}

// wrap re-tags a failure with a domain code, defaulting the status to 500
// when the cause carries none.
func wrap(err error, code, message string) *Error {
	return &Error{
		Code:    code,
		Status:  apiclient.StatusOf(err, http.StatusInternalServerError),
		Message: message,
		Err:     err,
	}
}
