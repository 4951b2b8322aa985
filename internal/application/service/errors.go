package service

import "errors"

// ErrInvalidInput marks a request rejected before any lookup
var ErrInvalidInput = errors.New("invalid input")
