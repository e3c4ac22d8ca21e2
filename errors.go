package sessionauth

import (
	"errors"

	"github.com/baxter-io/sessionauth/password"
	"github.com/baxter-io/sessionauth/role"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown username and for a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession is returned by RefreshAccessToken when the refresh token is
	// absent, expired, or unreadable.
	ErrInvalidSession = errors.New("invalid session")
	// ErrAlreadyExists is returned by Register when the username is taken.
	ErrAlreadyExists = errors.New("account already exists")
	// ErrRoleNotFound matches the *RoleNotFoundError returned by Register.
	ErrRoleNotFound = role.ErrNotFound
	// ErrPasswordTooLong is returned by Register for a password bcrypt cannot
	// hash (over 72 bytes).
	ErrPasswordTooLong = password.ErrPasswordTooLong
	// ErrStoreUnavailable wraps relational store and cache backend failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAccountNotFound is returned by Account for an unknown id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTokenInvalid is returned by ValidateAccess for any rejected access token.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrTokenIssue is returned when an access or refresh token cannot be produced.
	ErrTokenIssue = errors.New("token issue failed")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RoleNotFoundError names the first requested role that does not exist.
type RoleNotFoundError = role.NotFoundError
