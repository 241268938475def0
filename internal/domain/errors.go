package domain

import (
	"errors"
	"fmt"
)

// Business outcomes. Callers branch on these; they are never retried.
var (
	ErrNotVerified       = errors.New("Agent is not verified")
	ErrInsufficientFunds = errors.New("Insufficient credits")
	ErrNotEligible       = errors.New("Lead is not eligible for unlock")
	ErrAlreadySettled    = errors.New("Referral already settled")
	ErrSelfReferral      = errors.New("Agents cannot refer themselves")
	ErrDuplicateReport   = errors.New("An open report already exists for this lead")
	ErrAlreadyReferred   = errors.New("Agent was already referred")

	ErrLeadNotFound          = errors.New("Lead not found")
	ErrAgentNotFound         = errors.New("Agent not found")
	ErrWalletNotFound        = errors.New("Wallet not found")
	ErrWalletExists          = errors.New("Wallet already exists")
	ErrContactNotFound       = errors.New("No unlock found for this lead")
	ErrReferralNotFound      = errors.New("Referral not found")
	ErrReportNotFound        = errors.New("Report not found")
	ErrReportAlreadyResolved = errors.New("Report already resolved")
	ErrInvalidAmount         = errors.New("Amount must be a positive number")
	ErrInvalidReason         = errors.New("Invalid reason code")
	ErrInvalidStatus         = errors.New("Invalid status")
	ErrUnknownReferralCode   = errors.New("Unknown referral code")
	ErrEmailTaken            = errors.New("Email already registered")
	ErrInvalidLead           = errors.New("Invalid lead")
	ErrInvalidAgent          = errors.New("Invalid agent")
)

// Eligibility reasons carried by NotEligibleError.
const (
	ReasonExpired              = "expired"
	ReasonSoldOut              = "sold_out"
	ReasonAlreadyExclusive     = "already_exclusive"
	ReasonInactive             = "inactive"
	ReasonExclusiveUnavailable = "exclusive_unavailable"
	ReasonAlreadyUnlocked      = "already_unlocked"
)

// NotEligibleError reports why a lead cannot be unlocked. errors.Is(err, ErrNotEligible) holds.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotEligible.Error(), e.Reason)
}

func (e *NotEligibleError) Unwrap() error {
	return ErrNotEligible
}

// NotEligible builds a NotEligibleError for reason.
func NotEligible(reason string) error {
	return &NotEligibleError{Reason: reason}
}

// EligibilityReason returns the reason of a NotEligibleError in err's chain, or "".
func EligibilityReason(err error) string {
	var ne *NotEligibleError
	if errors.As(err, &ne) {
		return ne.Reason
	}
	return ""
}

// IsBusinessError reports whether err is an expected outcome rather than an infrastructure failure.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrNotVerified, ErrInsufficientFunds, ErrNotEligible, ErrAlreadySettled, ErrSelfReferral,
		ErrDuplicateReport, ErrLeadNotFound, ErrAgentNotFound, ErrWalletNotFound, ErrWalletExists,
		ErrContactNotFound, ErrReferralNotFound, ErrReportNotFound, ErrReportAlreadyResolved,
		ErrInvalidAmount, ErrInvalidReason, ErrInvalidStatus, ErrAlreadyReferred, ErrUnknownReferralCode,
		ErrEmailTaken, ErrInvalidLead, ErrInvalidAgent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
