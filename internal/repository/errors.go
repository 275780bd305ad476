// Package repository defines the storage contracts used by the services
// together with their MySQL implementation.  The sentinel values below are
// shared by every implementation (MySQL and the in-memory store) so that
// services can translate them with errors.Is.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint,
// such as a second active borrow record for the same book.  Handlers
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned by user creation when the email is taken.
var ErrEmailExists = errors.New("email already exists")
