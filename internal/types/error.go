package types

import "fmt"

// CustomError is the generic HTTP-facing error envelope.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// OutOfRangeError is returned when a raw difficulty or vote value falls
// outside the legal [0.00, 10.00] domain.
type OutOfRangeError struct {
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("raw difficulty %.2f is outside [0.00, 10.00]", e.Value)
}

// ConstraintViolation is returned when a completion submission is not
// strictly faster than the submitter's current best for the same map.
type ConstraintViolation struct {
	BestTime float64
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("submitted time is not faster than the current best (%.2fs)", e.BestTime)
}

// SelfLinkError is returned when a map is linked to its own code.
type SelfLinkError struct {
	Code string
}

func (e *SelfLinkError) Error() string {
	return fmt.Sprintf("map %s cannot be linked to itself", e.Code)
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ConflictError is returned when a link target already belongs to another
// pairing.
type ConflictError struct {
	Code       string
	LinkedCode string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("map %s is already linked to %s", e.Code, e.LinkedCode)
}

// IneligibleVoterError is returned when a playtest vote is cast by a user
// without a verified, non-legacy completion of the map.
type IneligibleVoterError struct {
	UserID uint64
	Code   string
}

func (e *IneligibleVoterError) Error() string {
	return fmt.Sprintf("user %d has no verified completion of map %s", e.UserID, e.Code)
}

// DuplicateEventError is returned when a click event repeats within the same
// UTC day bucket.
type DuplicateEventError struct {
	Code      string
	DayBucket int64
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("click for map %s already recorded in day bucket %d", e.Code, e.DayBucket)
}

// ValidationError is returned for malformed input (bad map code, missing
// proof, quality out of bounds).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
