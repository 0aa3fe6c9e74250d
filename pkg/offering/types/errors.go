package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ledger error.
type ErrorKind string

const (
	ErrorKind_Authorization     ErrorKind = "authorization"
	ErrorKind_Phase             ErrorKind = "phase"
	ErrorKind_Validation        ErrorKind = "validation"
	ErrorKind_Eligibility       ErrorKind = "eligibility"
	ErrorKind_InsufficientFunds ErrorKind = "insufficientFunds"
	ErrorKind_Internal          ErrorKind = "internal"
)

// Error is a named ledger condition. Sentinels below are compared with errors.Is;
// call sites add context with Wrap.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code string, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrNotAdmin = newError(ErrorKind_Authorization, "NotAdmin", "caller is not the admin")

	ErrTooEarly            = newError(ErrorKind_Phase, "TooEarly", "offering has not opened yet")
	ErrTooLate             = newError(ErrorKind_Phase, "TooLate", "offering has closed")
	ErrSaleStarted         = newError(ErrorKind_Phase, "SaleStarted", "offering has started")
	ErrTooEarlyToHarvest   = newError(ErrorKind_Phase, "TooEarlyToHarvest", "too early to harvest")
	ErrInPreparationPeriod = newError(ErrorKind_Phase, "InPreparationPeriod", "in preparation period")
	ErrCannotWithdrawNow   = newError(ErrorKind_Phase, "CannotWithdrawNow", "cannot withdraw now")
	ErrAlreadyWithdrawn    = newError(ErrorKind_Phase, "AlreadyWithdrawn", "raised funds already withdrawn")

	ErrInvalidPool           = newError(ErrorKind_Validation, "InvalidPool", "invalid pool id")
	ErrPoolNotConfigured     = newError(ErrorKind_Validation, "PoolNotConfigured", "pool not set")
	ErrInvalidAmount         = newError(ErrorKind_Validation, "InvalidAmount", "amount must be greater than zero")
	ErrLimitExceeded         = newError(ErrorKind_Validation, "LimitExceeded", "new amount above user limit")
	ErrDidNotParticipate     = newError(ErrorKind_Validation, "DidNotParticipate", "user did not participate in pool")
	ErrPercentOutOfRange     = newError(ErrorKind_Validation, "PercentOutOfRange", "release percent must be in range 1-100")
	ErrNotMonotonicPercent   = newError(ErrorKind_Validation, "NotMonotonicPercent", "release percent must be greater than its previous value")
	ErrNotMonotonicTimestamp = newError(ErrorKind_Validation, "NotMonotonicTimestamp", "next release timestamp must be greater than current value")
	ErrInvalidNextRelease    = newError(ErrorKind_Validation, "InvalidNextRelease", "next release time must be greater than offering close time")
	ErrIdenticalTokens       = newError(ErrorKind_Validation, "IdenticalTokens", "contribution and offering tokens must be different")
	ErrInvalidSaleWindow     = newError(ErrorKind_Validation, "InvalidSaleWindow", "invalid sale window")
	ErrInvalidNumberPools    = newError(ErrorKind_Validation, "InvalidNumberPools", "number of pools out of range")
	ErrInvalidAdmin          = newError(ErrorKind_Validation, "InvalidAdmin", "admin must not be the zero address")
	ErrMissingVault          = newError(ErrorKind_Validation, "MissingVault", "state requires an eligibility vault")

	ErrNotEligible = newError(ErrorKind_Eligibility, "NotEligible", "not eligible to participate")

	ErrInsufficientBalance         = newError(ErrorKind_InsufficientFunds, "InsufficientBalance", "insufficient balance")
	ErrInsufficientAllowance       = newError(ErrorKind_InsufficientFunds, "InsufficientAllowance", "insufficient allowance")
	ErrNotEnoughContributionTokens = newError(ErrorKind_InsufficientFunds, "NotEnoughContributionTokens", "not enough contribution tokens")
	ErrNotEnoughOfferingTokens     = newError(ErrorKind_InsufficientFunds, "NotEnoughOfferingTokens", "not enough offering tokens")

	ErrReentrantCall = newError(ErrorKind_Internal, "ReentrantCall", "call rejected while a transfer is in flight")
)

var allErrors = []*Error{
	ErrNotAdmin,
	ErrTooEarly, ErrTooLate, ErrSaleStarted, ErrTooEarlyToHarvest, ErrInPreparationPeriod, ErrCannotWithdrawNow, ErrAlreadyWithdrawn,
	ErrInvalidPool, ErrPoolNotConfigured, ErrInvalidAmount, ErrLimitExceeded, ErrDidNotParticipate, ErrPercentOutOfRange,
	ErrNotMonotonicPercent, ErrNotMonotonicTimestamp, ErrInvalidNextRelease, ErrIdenticalTokens, ErrInvalidSaleWindow,
	ErrInvalidNumberPools, ErrInvalidAdmin, ErrMissingVault,
	ErrNotEligible,
	ErrInsufficientBalance, ErrInsufficientAllowance, ErrNotEnoughContributionTokens, ErrNotEnoughOfferingTokens,
	ErrReentrantCall,
}

// ErrorByCode returns the sentinel with the given code.
func ErrorByCode(code string) (*Error, bool) {
	for _, e := range allErrors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}

// Wrap annotates a sentinel with detail while keeping errors.Is working.
func Wrap(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first ledger error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind, true
	}
	return "", false
}

// CodeOf returns the code of the first ledger error in err's chain.
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
