package protocol

const (
	// Request validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Content loading.
	ErrContentInvalid = "E_CONTENT_INVALID"
	ErrNoRegistry     = "E_NO_REGISTRY"

	// Effects.
	ErrUnknownEffect = "E_UNKNOWN_EFFECT"
	ErrUnknownTarget = "E_UNKNOWN_TARGET"

	ErrForbidden = "E_FORBIDDEN"
	ErrInternal  = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:     {},
	ErrContentInvalid: {},
	ErrNoRegistry:     {},
	ErrUnknownEffect:  {},
	ErrUnknownTarget:  {},
	ErrForbidden:      {},
	ErrInternal:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
