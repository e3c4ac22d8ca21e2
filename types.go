package sessionauth

import "time"

// LoginResult is returned by Engine.Login.
//
// RefreshToken is empty when the refresh token could not be stored; the
// access token is still valid in that case.
type LoginResult struct {
	AccountID    int64
	Username     string
	UserID       string
	AccessToken  string
	RefreshToken string
}

// RegisterRequest is the input to Engine.Register.
type RegisterRequest struct {
	Username string
	Password string
	Roles    []string
}

// RegisterResult is returned by Engine.Register.
type RegisterResult struct {
	AccountID int64
	Username  string
	UserID    string
}

// RefreshResult is returned by Engine.RefreshAccessToken.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// AccountInfo is the public view of an account returned by Engine.Account.
type AccountInfo struct {
	ID       int64
	Username string
	UserID   string
}

// AuthResult is the outcome of a successful ValidateAccess call.
type AuthResult struct {
	Subject   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasRole reports whether the validated token carries role.
func (r *AuthResult) HasRole(role string) bool {
	if r == nil {
		return false
	}
	for _, have := range r.Roles {
		if have == role {
			return true
		}
	}
	return false
}

// HealthStatus is returned by Engine.Ping.
type HealthStatus struct {
	RedisLatency time.Duration
	RedisErr     error
	StoreErr     error
}

// Healthy reports whether every dependency answered.
func (h HealthStatus) Healthy() bool {
	return h.RedisErr == nil && h.StoreErr == nil
}
