package models

// RegisterBusinessRequest carries the business half of a registration.
type RegisterBusinessRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Industry    string `json:"industry" validate:"omitempty"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	DomainURL   string `json:"domain_url" validate:"omitempty,url"`
}

// RegisterOwnerRequest carries the owner half of a registration.
type RegisterOwnerRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest creates a business and its owner in a single call.
type RegisterRequest struct {
	Business RegisterBusinessRequest `json:"business" validate:"required"`
	Owner    RegisterOwnerRequest    `json:"owner" validate:"required"`
}

// RegisterResponse confirms account creation. The owner cannot log in until
// the verification step activates the account.
type RegisterResponse struct {
	BusinessID string `json:"business_id"`
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

// LoginRequest holds credentials for authenticating an employee.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token pair.
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	Role         EmployeeRole `json:"role"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the new access token. The refresh token is not
// rotated; the same token stays valid until its own expiry or logout.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LogoutRequest revokes the session behind a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// VerifyEmailRequest completes the email verification flow.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// MeResponse describes the authenticated employee and its business.
type MeResponse struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	FullName string       `json:"full_name"`
	Role     EmployeeRole `json:"role"`
	Business string       `json:"business"`
}
