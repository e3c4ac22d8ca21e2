package httpapi

import (
	"net/mail"
	"unicode"
	"unicode/utf8"
)

const (
	maxUserNameLen = 100
	minPasswordLen = 8

	// bcrypt only hashes the first 72 bytes and rejects anything longer.
	maxPasswordBytes = 72

	msgUserNameRequired = "username is required"
	msgUserNameTooLong  = "username cannot exceed 100 characters"
	msgUserNameEmail    = "invalid email format"
	msgPassword         = "invalid password (at least 8 characters, 1 upper case, 1 lower case, 1 special character)"
	msgPasswordTooLong  = "password cannot exceed 72 bytes"
	msgRolesRequired    = "user must have access roles"
	msgRefreshRequired  = "refresh token is required"
)

type fieldErrors map[string]string

func (f fieldErrors) empty() bool { return len(f) == 0 }

func validateCredentials(userName, password string) fieldErrors {
	errs := fieldErrors{}
	if msg := checkUserName(userName); msg != "" {
		errs["userName"] = msg
	}
	switch {
	case len(password) > maxPasswordBytes:
		errs["password"] = msgPasswordTooLong
	case !validPassword(password):
		errs["password"] = msgPassword
	}
	return errs
}

func validateRegister(req registerRequest) fieldErrors {
	errs := validateCredentials(req.UserName, req.Password)
	if len(req.Roles) == 0 {
		errs["roles"] = msgRolesRequired
	}
	return errs
}

func checkUserName(s string) string {
	switch {
	case s == "":
		return msgUserNameRequired
	case utf8.RuneCountInString(s) > maxUserNameLen:
		return msgUserNameTooLong
	case !validEmail(s):
		return msgUserNameEmail
	}
	return ""
}

// validEmail accepts a bare addr-spec only; display names and angle
// brackets are rejected.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

func validPassword(s string) bool {
	if utf8.RuneCountInString(s) < minPasswordLen {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			return false
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return upper && lower && digit && special
}
