package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrLockHeld         = errors.New("lock already held")
	ErrIngestionRunning = errors.New("ingestion cycle already running")
	ErrPayoutRunning    = errors.New("payout cycle already running")
	ErrSplitInvariant   = errors.New("fee split does not sum to total fee")
	ErrInvalidStatus    = errors.New("invalid status transition")
	ErrNoWallet         = errors.New("platform has no wallet address")
	ErrWSDisconnect     = errors.New("websocket disconnected")
)
