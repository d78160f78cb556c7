package domain

import "errors"

// CallType selects which local media a call session acquires.
type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

var ErrUnknownCallType = errors.New("unknown call type")

func ParseCallType(s string) (CallType, error) {
	switch CallType(s) {
	case CallAudio, CallVideo:
		return CallType(s), nil
	}
	return "", ErrUnknownCallType
}
