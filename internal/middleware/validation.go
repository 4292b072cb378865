package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	maxUserIDLength  = 128
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ErrorResponse writes a consistent JSON error body.
func ErrorResponse(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// ValidateUserID checks the userId path parameter: non-empty after trimming,
// bounded length, no whitespace.
func ValidateUserID(c fiber.Ctx) (string, error) {
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return "", ErrorResponse(c, fiber.StatusBadRequest, "userId is required")
	}
	if len(userID) > maxUserIDLength {
		return "", ErrorResponse(c, fiber.StatusBadRequest, "userId is too long")
	}
	if strings.ContainsAny(userID, " \t\n") {
		return "", ErrorResponse(c, fiber.StatusBadRequest, "userId must not contain whitespace")
	}
	return userID, nil
}

// ValidateProofID checks the proofId path parameter is a well-formed UUID.
func ValidateProofID(c fiber.Ctx) (string, error) {
	proofID := strings.TrimSpace(c.Params("proofId"))
	if proofID == "" {
		return "", ErrorResponse(c, fiber.StatusBadRequest, "proofId is required")
	}
	if _, err := uuid.Parse(proofID); err != nil {
		return "", ErrorResponse(c, fiber.StatusBadRequest, "proofId must be a valid UUID")
	}
	return proofID, nil
}

// ParseLimit reads the optional "limit" query parameter, clamped to
// [1, maxPageLimit], defaulting to defaultPageLimit.
func ParseLimit(c fiber.Ctx) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultPageLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultPageLimit
	}
	if n > maxPageLimit {
		return maxPageLimit
	}
	return n
}
