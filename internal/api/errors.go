package api

import "fmt"

// Closed result codes surfaced to the UI. Operation-specific codes
// come back verbatim from the server body; status-derived codes cover
// everything else.
const (
	ErrUnauthorized         = "ERR_UNAUTHORIZED"
	ErrForbidden            = "ERR_FORBIDDEN"
	ErrValidationFailed     = "ERR_VALIDATION_FAILED"
	ErrUnknown              = "ERR_UNKNOWN"
	ErrUserNotFound         = "ERR_USER_NOT_FOUND"
	ErrAddingItself         = "ERR_ADDING_ITSELF"
	ErrTooManyServers       = "ERR_TOO_MANY_SERVERS"
	ErrMessageTooBig        = "ERR_MESSAGE_TOO_BIG"
	ErrInviteServerNotFound = "ERR_INVITE_SERVER_NOT_FOUND"
	ErrUsernameInUse        = "ERR_USERNAME_IN_USE"
	ErrEmailInUse           = "ERR_EMAIL_IN_USE"
	ErrEmojiTooBig          = "ERR_EMOJI_TOO_BIG"
	ErrEmojiBadShortcode    = "ERR_EMOJI_BAD_SHORTCODE"
)

// Error is the tagged failure result of a request. Endpoints return it
// explicitly; nothing in this package panics or throws.
type Error struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
	// Raw is the server's error string, kept for UI display.
	Raw string `json:"error,omitempty"`
	// Cause optionally carries a payload describing the failure.
	Cause any `json:"cause,omitempty"`
}

func (e *Error) Error() string {
	if e.Raw == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Raw)
}

// errorBody is the server's error response shape.
type errorBody struct {
	Status int    `json:"status"`
	Code   string `json:"code,omitempty"`
	Err    string `json:"error,omitempty"`
	Cause  any    `json:"cause,omitempty"`
}

// mapError resolves the result code for an operation. A server code
// inside the operation's closed set wins; otherwise the HTTP status
// picks the generic code.
func mapError(status int, body errorBody, opCodes ...string) *Error {
	for _, code := range opCodes {
		if code != "" && body.Code == code {
			return &Error{Code: code, Status: status, Raw: body.Err, Cause: body.Cause}
		}
	}

	code := ErrUnknown
	switch status {
	case 400:
		code = ErrValidationFailed
	case 401:
		code = ErrUnauthorized
	case 403:
		code = ErrForbidden
	}
	return &Error{Code: code, Status: status, Raw: body.Err, Cause: body.Cause}
}
