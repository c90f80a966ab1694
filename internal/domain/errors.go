package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrCacheNotInitialized indicates a cache operation ran before Initialize completed
	ErrCacheNotInitialized = errors.New("database not initialized")

	// ErrNetwork indicates the backend could not be reached or answered with a failure
	ErrNetwork = errors.New("backend is unreachable")

	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrAuthFailed indicates the backend rejected the API key
	ErrAuthFailed = errors.New("api key is invalid")

	// ErrPartialPreload indicates some songs of a setlist could not be downloaded
	ErrPartialPreload = errors.New("setlist partially downloaded")
)
