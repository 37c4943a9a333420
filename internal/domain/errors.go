package domain

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrNotAMember        = errors.New("not a member of room")
	ErrTransport         = errors.New("transport error")
	ErrPayloadTooLarge   = errors.New("payload too large")

	ErrAlreadyInRoom = errors.New("already in a room")
	ErrInvalidRoomID = errors.New("invalid room id")
	ErrRateLimited   = errors.New("too many attempts")
	ErrBadPayload    = errors.New("bad payload")
)

// ErrorCode maps an error to the code sent in "error" events.
// Errors outside the taxonomy are reported as "internal".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrRoomAlreadyExists):
		return "room_already_exists"
	case errors.Is(err, ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, ErrInvalidRoomID):
		return "invalid_room_id"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrBadPayload):
		return "bad_payload"
	default:
		return "internal"
	}
}
