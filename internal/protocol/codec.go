package protocol

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/dkeye/Parley/internal/domain"
)

// Decode parses one inbound frame. Frames larger than maxPayload are
// rejected before any parsing; maxPayload <= 0 disables the check.
func Decode(data []byte, maxPayload int) (Envelope, error) {
	if maxPayload > 0 && len(data) > maxPayload {
		return Envelope{}, fmt.Errorf("%d bytes: %w", len(data), domain.ErrPayloadTooLarge)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("envelope: %v: %w", err, domain.ErrBadPayload)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("missing type: %w", domain.ErrBadPayload)
	}
	return env, nil
}

// DecodeData unmarshals the envelope body into T. A missing body yields
// the zero value.
func DecodeData[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return v, fmt.Errorf("%s data: %v: %w", env.Type, err, domain.ErrBadPayload)
	}
	return v, nil
}

// Encode builds a frame of the given type. A nil v produces a frame without data.
func Encode(typ string, v any) ([]byte, error) {
	env := Envelope{Type: typ}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", typ, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// ErrorFrame encodes err as an "error" event.
func ErrorFrame(err error) []byte {
	b, _ := Encode(TypeError, ErrorEvent{Code: domain.ErrorCode(err), Message: err.Error()})
	return b
}
