package externalApi

import "errors"

var (
	ErrNotFound    = errors.New("error not found")
	ErrBadResponse = errors.New("error bad response from provider")
)
