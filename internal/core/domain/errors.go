package domain

import "errors"

var (
	// ErrInvalidAmount rejects zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrSelfTransfer rejects transfers where sender and receiver match.
	ErrSelfTransfer = errors.New("cannot transfer to own account")

	// ErrAuthenticationFailed covers any step-up credential mismatch.
	// Deliberately unspecific about which check failed.
	ErrAuthenticationFailed = errors.New("invalid credentials")

	// ErrSenderNotFound means the sender has no account.
	ErrSenderNotFound = errors.New("sender account not found")

	// ErrReceiverNotFound means the receiver has no account.
	ErrReceiverNotFound = errors.New("receiver account not found")

	// ErrInsufficientFunds means the debit would take the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is the store-level miss for any account lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists rejects a second account for the same user.
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrEntryNotFound is the store-level miss for a ledger entry.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrUserNotFound is the store-level miss for a user record.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken rejects registration with an email already in use.
	ErrEmailTaken = errors.New("email already used")

	// ErrTransferFailed is the generic transient failure. The unit of work
	// was aborted; no balance change was persisted.
	ErrTransferFailed = errors.New("transfer failed")
)
