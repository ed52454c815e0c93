package authapi

// TokenResponse is returned by every credential-issuing endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	UserID      int64  `json:"user_id"`
	Role        string `json:"role"`
}

// User is the server's view of an account, cached client-side as a
// read-through copy of server truth.
type User struct {
	ID              int64  `json:"id"`
	PhoneNumber     string `json:"phone_number"`
	Email           string `json:"email,omitempty"`
	FullName        string `json:"full_name"`
	Role            string `json:"role"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	IsActive        bool   `json:"is_active"`
	PhoneVerified   bool   `json:"phone_verified"`
	EmailVerified   bool   `json:"email_verified"`
	EstablishmentID *int64 `json:"establishment_id,omitempty"`
}

// RegisterInput is the body for POST /auth/register. Email and Password are
// optional; phone-only registration falls back to OTP login.
type RegisterInput struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name"`
	Password    string `json:"password,omitempty"`
}

// LoginInput is the body for POST /auth/login. Password is optional for OTP
// accounts.
type LoginInput struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password,omitempty"`
}

// EmailLoginInput is the body for POST /auth/email/login.
type EmailLoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OTPRequestInput is the body for POST /auth/phone/request-otp.
type OTPRequestInput struct {
	PhoneNumber string `json:"phone_number"`
}

// OTPResponse acknowledges an OTP dispatch.
type OTPResponse struct {
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expires_in"`
}

// OTPVerifyInput is the body for POST /auth/phone/verify-otp.
type OTPVerifyInput struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

// GoogleAuthRequest carries the authorization code from Google's redirect.
type GoogleAuthRequest struct {
	Code string `json:"code"`
}

// GoogleAuthURL is returned by GET /auth/google/url.
type GoogleAuthURL struct {
	AuthURL string `json:"auth_url"`
}
