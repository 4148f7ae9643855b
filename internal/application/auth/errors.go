package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidEmail          = errors.New("Invalid Email")
	ErrIncorrectPassword     = errors.New("Incorrect Password")
	ErrInactiveUser          = errors.New("Account is disabled")
	ErrNotAuthenticated      = errors.New("Not authenticated")
)
