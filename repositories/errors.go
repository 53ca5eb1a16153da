package repositories

import "errors"

var (
	// ErrNotFound is returned by repositories when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentUpdate is returned when another writer changed a record mid-update
	ErrConcurrentUpdate = errors.New("record modified concurrently")
)
