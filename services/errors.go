package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Game-rule errors. These are caller-input or caller-sequencing problems and
// are surfaced verbatim to the API layer — never retried internally.
// Infrastructure failures (gorm, S3) propagate as ordinary wrapped errors and
// map to 500.
var (
	ErrNotYourTurn         = &GameError{Code: fiber.StatusForbidden, Message: "not your turn to submit a clip"}
	ErrNotParticipant      = &GameError{Code: fiber.StatusForbidden, Message: "not a player in this match"}
	ErrSelfChallenge       = &GameError{Code: fiber.StatusBadRequest, Message: "cannot accept your own challenge"}
	ErrSelfJudge           = &GameError{Code: fiber.StatusForbidden, Message: "cannot judge your own clip"}
	ErrChallengeNotFound   = &GameError{Code: fiber.StatusNotFound, Message: "challenge not found or already accepted"}
	ErrMatchNotFound       = &GameError{Code: fiber.StatusNotFound, Message: "match not found"}
	ErrClipNotFound        = &GameError{Code: fiber.StatusNotFound, Message: "clip not found"}
	ErrNotYourClip         = &GameError{Code: fiber.StatusForbidden, Message: "not your clip"}
	ErrSelfChallengeCreate = &GameError{Code: fiber.StatusBadRequest, Message: "cannot create match with yourself"}
)

// GameError is a rule violation with an HTTP status the handler layer can use
// directly.
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string { return e.Message }

// InvalidStateError rejects an operation that is illegal for the match's
// current status.
type InvalidStateError struct {
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("match is %s, operation not allowed", e.Status)
}

// AlreadyJudgedError rejects a second judgement of the same clip.
type AlreadyJudgedError struct {
	Status string
}

func (e *AlreadyJudgedError) Error() string {
	return fmt.Sprintf("clip already judged: %s", e.Status)
}

// GeoOutOfRangeError carries the computed distance and the configured limit so
// the client can render a precise message.
type GeoOutOfRangeError struct {
	DistanceMiles float64
	LimitMiles    float64
}

func (e *GeoOutOfRangeError) Error() string {
	return fmt.Sprintf("GPS too far from anchor: %.2f miles (max: %g)", e.DistanceMiles, e.LimitMiles)
}

// httpStatus maps an error to the status code the fiber layer should return.
func httpStatus(err error) int {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	var invalid *InvalidStateError
	var judged *AlreadyJudgedError
	var geo *GeoOutOfRangeError
	switch {
	case errors.As(err, &invalid), errors.As(err, &judged), errors.As(err, &geo):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// fail renders err as a JSON error response. Rule violations are normal
// traffic and are not logged here.
func fail(c *fiber.Ctx, err error) error {
	return c.Status(httpStatus(err)).JSON(fiber.Map{"error": err.Error()})
}
