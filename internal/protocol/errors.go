package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrNoPermission  = "E_NO_PERMISSION"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNotFound      = "E_NOT_FOUND"
	ErrConflict      = "E_CONFLICT"

	// Crafting.
	ErrDisabled   = "E_DISABLED"
	ErrNoMatch    = "E_NO_MATCH"
	ErrNoResource = "E_NO_RESOURCE"
	ErrNoSpace    = "E_NO_SPACE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrNoPermission:    {},
	ErrInvalidTarget:   {},
	ErrNotFound:        {},
	ErrConflict:        {},
	ErrDisabled:        {},
	ErrNoMatch:         {},
	ErrNoResource:      {},
	ErrNoSpace:         {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
