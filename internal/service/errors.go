package service

import "errors"

var (
	ErrNotFound         = errors.New("error not found")
	ErrQuoteUnavailable = errors.New("error quote unavailable")
	ErrEmptyPortfolio   = errors.New("error empty portfolio")
)
