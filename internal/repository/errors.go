// Package repository contains data access logic separated from HTTP
// handlers. Sentinel errors defined here let handlers distinguish failure
// scenarios without inspecting driver-specific errors.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested row does not exist. Handlers
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering with an email that is already
// taken (case-insensitively, since emails are stored lowercased).
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateSubmission is returned when the unique (assignment, student)
// key rejects a second submission. The constraint lives in the schema so
// that two concurrent submits cannot both pass an existence check.
var ErrDuplicateSubmission = errors.New("assignment already submitted")

// ErrAssetNotPresent is returned when reading an asset slot that holds no
// attachment.
var ErrAssetNotPresent = errors.New("asset not present")

// isDuplicateKey reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
