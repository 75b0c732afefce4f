package model

import "errors"

var (
	// ErrNoFiles reports that the scanner produced no candidate files.
	ErrNoFiles = errors.New("no source files matched")
	// ErrNoRoutes reports that no route registration was recovered, or that a
	// renderer was handed an empty descriptor list.
	ErrNoRoutes = errors.New("no routes recovered")
)
