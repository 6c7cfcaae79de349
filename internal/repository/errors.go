// Package repository contains the data access layer: row types, sentinel
// errors and parameterized queries executed over pooled connections. Sentinel
// values let handlers translate failures into protocol tokens without parsing
// driver errors themselves.
package repository

import (
	"errors"
	"strings"
)

var (
	// ErrUserNotFound is returned when a username or user id has no row.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists is returned on a registration unique-key conflict.
	ErrUsernameExists = errors.New("username already exists")
	// ErrVenueNotFound is returned when a restaurant id has no row.
	ErrVenueNotFound = errors.New("restaurant not found")
	// ErrReviewNotFound is returned when the (user, venue) pair has no review.
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview is returned when a second review is added for the
	// same (user, venue) pair; edits, not duplicates, govern changes.
	ErrDuplicateReview = errors.New("review already exists")
	// ErrResponseExists is returned when a review already has a response.
	ErrResponseExists = errors.New("response already exists")
	// ErrResponseNotFound is returned when a review has no response to edit
	// or remove.
	ErrResponseNotFound = errors.New("response not found")
)

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// isForeignKeyViolation reports whether err is a MySQL referential-integrity
// error (1452), i.e. the referenced row does not exist.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1452")
}
