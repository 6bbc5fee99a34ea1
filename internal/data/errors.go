package data

import "errors"

// Shared sentinel errors for the data layer.
var (
	ErrOutputPathRequired = errors.New("output path is required")
	ErrOutputIsDirectory  = errors.New("output path is a directory")
)
