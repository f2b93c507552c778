package craft

import "errors"

var (
	// ErrInsufficientResource means a behavior was asked to apply without a
	// backing resource. Outside of a concurrency bug this never happens.
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrNoMatch is the ordinary negative result: nothing satisfies the
	// inputs at multiplier 1.
	ErrNoMatch           = errors.New("no match")
	ErrDuplicateID       = errors.New("duplicate recipe id")
	ErrNotFound          = errors.New("recipe not found")
	ErrFeatureDisabled   = errors.New("crafting in hand disabled")
	ErrInvalidRecipe     = errors.New("invalid recipe")
	ErrInvalidMultiplier = errors.New("multiplier must be >= 1")
	ErrBadParams         = errors.New("bad request params")
)
