package response

import (
	"errors"

	"leadslot-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// TopUpPath is where clients send agents who run out of credits.
const TopUpPath = "/api/v1/wallets/top-up"

var statusMap = []struct {
	err  error
	code int
}{
	{domain.ErrNotVerified, fiber.StatusForbidden},
	{domain.ErrInsufficientFunds, fiber.StatusPaymentRequired},
	{domain.ErrNotEligible, fiber.StatusConflict},
	{domain.ErrAlreadySettled, fiber.StatusConflict},
	{domain.ErrAlreadyReferred, fiber.StatusConflict},
	{domain.ErrDuplicateReport, fiber.StatusConflict},
	{domain.ErrReportAlreadyResolved, fiber.StatusConflict},
	{domain.ErrWalletExists, fiber.StatusConflict},
	{domain.ErrEmailTaken, fiber.StatusConflict},
	{domain.ErrLeadNotFound, fiber.StatusNotFound},
	{domain.ErrAgentNotFound, fiber.StatusNotFound},
	{domain.ErrWalletNotFound, fiber.StatusNotFound},
	{domain.ErrContactNotFound, fiber.StatusNotFound},
	{domain.ErrReferralNotFound, fiber.StatusNotFound},
	{domain.ErrReportNotFound, fiber.StatusNotFound},
	{domain.ErrSelfReferral, fiber.StatusBadRequest},
	{domain.ErrUnknownReferralCode, fiber.StatusBadRequest},
	{domain.ErrInvalidAmount, fiber.StatusBadRequest},
	{domain.ErrInvalidReason, fiber.StatusBadRequest},
	{domain.ErrInvalidStatus, fiber.StatusBadRequest},
	{domain.ErrInvalidLead, fiber.StatusBadRequest},
	{domain.ErrInvalidAgent, fiber.StatusBadRequest},
}

// StatusFor returns the HTTP status for a domain error, or 500.
func StatusFor(err error) int {
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return fiber.StatusInternalServerError
}

// FromError writes err in the standard error format. Infrastructure errors are logged
// and hidden behind a generic message.
func FromError(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	if code == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return Error(c, "Internal Server Error", code, nil)
	}

	var details map[string]interface{}
	switch {
	case errors.Is(err, domain.ErrNotEligible):
		details = map[string]interface{}{"reason": domain.EligibilityReason(err)}
	case errors.Is(err, domain.ErrInsufficientFunds):
		details = map[string]interface{}{"top_up_path": TopUpPath}
	}
	return Error(c, err.Error(), code, details)
}
