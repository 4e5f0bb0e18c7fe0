package domain

import "errors"

var (
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	ErrMissingCoordinates = errors.New("latitude and longitude are required")
	ErrUnknownEmoji       = errors.New("emoji is not in the palette")
	ErrEmptyUID           = errors.New("uid is required")
	ErrRateLimited        = errors.New("too many location updates")
)
