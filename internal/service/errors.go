package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrForbidden          = errors.New("forbidden: insufficient permissions")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError carries field-level failures detected before any
// mutation; callers map it to a 400.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// UpstreamError wraps a failure of an external collaborator (object
// store or model service). The original message is preserved for the
// caller; mapped to a 502.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
