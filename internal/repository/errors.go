// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. A missing
// row, including a row the caller does not own, is reported as
// sql.ErrNoRows.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own and the distinction from "not found"
// must be surfaced (document upload onto someone else's application).
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registration targets an email that is
// already taken. Handlers should translate this into an HTTP 409
// response and must leave the existing user row untouched.
var ErrEmailExists = errors.New("email already exists")

// ErrBadPassword is returned by the password change path when the
// supplied current password does not match the stored hash. Handlers
// should translate this into an HTTP 400 response.
var ErrBadPassword = errors.New("current password is incorrect")
