package service

import "errors"

var (
	ErrNotFound              = errors.New("error not found")
	ErrInsufficientFunds     = errors.New("error insufficient funds")
	ErrInsufficientShares    = errors.New("error insufficient shares")
	ErrMarketDataUnavailable = errors.New("error market data unavailable")
	ErrSignalLengthMismatch  = errors.New("error signal series length mismatch")
	ErrProfileLoadFailed     = errors.New("error profile load failed")
	ErrProfileSaveFailed     = errors.New("error profile save failed")
)
