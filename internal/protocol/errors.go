package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrOutOfBounds      = "E_OUT_OF_BOUNDS"
	ErrInvalidBlockKind = "E_INVALID_BLOCK_KIND"
	ErrNotStateful      = "E_NOT_STATEFUL"
	ErrNothingToUndo    = "E_NOTHING_TO_UNDO"
	ErrNothingToRedo    = "E_NOTHING_TO_REDO"

	// Persistence.
	ErrMalformedSave = "E_MALFORMED_SAVE"
	ErrSaveNotFound  = "E_SAVE_NOT_FOUND"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrOutOfBounds:      {},
	ErrInvalidBlockKind: {},
	ErrNotStateful:      {},
	ErrNothingToUndo:    {},
	ErrNothingToRedo:    {},
	ErrMalformedSave:    {},
	ErrSaveNotFound:     {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
