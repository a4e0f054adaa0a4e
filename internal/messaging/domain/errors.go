package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMessage message is missing a participant, dropped from aggregation
	ErrInvalidMessage = errors.New("message missing sender or receiver")
	// ErrEmptySendRequest send called without usable text or audio
	ErrEmptySendRequest = errors.New("cannot send empty message")
	// ErrAmbiguousPayload send called with both text and audio
	ErrAmbiguousPayload = errors.New("message payload must be either text or audio")
	// ErrMissingPartner send called without a recipient
	ErrMissingPartner = errors.New("recipient missing")
	// ErrMissingSender no signed-in user
	ErrMissingSender = errors.New("user not logged in")
	// ErrNotMessageSender only the sender may retract a message
	ErrNotMessageSender = errors.New("only the sender can delete a message")
	// ErrMessageNotFound message id unknown to the store
	ErrMessageNotFound = errors.New("message not found")
	// ErrProfileLookup partner name resolution failed, caller falls back to denormalized name
	ErrProfileLookup = errors.New("profile lookup failed")
)

// StoreWriteFailure create/update/delete against the store failed
type StoreWriteFailure struct {
	Op        string
	MessageID string
	Err       error
}

func (e *StoreWriteFailure) Error() string {
	if e.MessageID != "" {
		return fmt.Sprintf("store %s [%s] failed: %v", e.Op, e.MessageID, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreWriteFailure) Unwrap() error {
	return e.Err
}

// NewStoreWriteFailure wrap a store error
func NewStoreWriteFailure(op, messageID string, err error) error {
	return &StoreWriteFailure{Op: op, MessageID: messageID, Err: err}
}

// IsStoreWriteFailure check err chain for a StoreWriteFailure
func IsStoreWriteFailure(err error) bool {
	var target *StoreWriteFailure
	return errors.As(err, &target)
}
