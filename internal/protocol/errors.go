package protocol

// Rejection codes carried by join_rejected and HTTP error responses.
const (
	// Payload validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Join layer.
	ErrNicknameTaken = "E_NICKNAME_TAKEN"

	// Protected requests.
	ErrAuth         = "E_AUTH"
	ErrNoResource   = "E_NO_RESOURCE"
	ErrNotFound     = "E_NOT_FOUND"
	ErrNoPermission = "E_NO_PERMISSION"
	ErrConflict     = "E_CONFLICT"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:    {},
	ErrNicknameTaken: {},
	ErrAuth:          {},
	ErrNoResource:    {},
	ErrNotFound:      {},
	ErrNoPermission:  {},
	ErrConflict:      {},
	ErrInternal:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
