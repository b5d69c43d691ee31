package service

import (
	"errors"
	"fmt"

	"rideledger/internal/repository"
)

var (
	// ErrFundsMismatch is returned when the attached payment differs from the declared fare.
	ErrFundsMismatch = errors.New("attached funds do not match fare")

	// ErrRideNotFound is returned when the referenced ride has no record.
	ErrRideNotFound = fmt.Errorf("ride: %w", repository.ErrNotFound)

	// ErrInvalidState is returned when a transition is illegal from the ride's current status.
	ErrInvalidState = errors.New("invalid ride state for this operation")

	// ErrUnauthorized is returned when the caller is not allowed to perform the transition.
	ErrUnauthorized = errors.New("caller is not authorized for this ride")

	// ErrPayoutFailed is returned when the fare could not be paid to the driver.
	ErrPayoutFailed = errors.New("payout to driver failed")

	// ErrRefundFailed is returned when the fare could not be refunded to the rider.
	ErrRefundFailed = errors.New("refund to rider failed")

	// ErrTransferRejected is returned when the destination account refuses incoming transfers.
	ErrTransferRejected = errors.New("destination rejected the transfer")

	// ErrInvalidCaller is returned when the caller identity is empty.
	ErrInvalidCaller = errors.New("invalid caller")

	// ErrInvalidAmount is returned when an amount is negative.
	ErrInvalidAmount = errors.New("invalid amount")
)
