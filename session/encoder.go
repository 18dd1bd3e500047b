package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

const schemaVersion = 1

// ErrCorruptSession is returned when a stored blob cannot be decoded.
var ErrCorruptSession = errors.New("corrupt session record")

type envelope struct {
	Version int      `json:"v"`
	Session *Session `json:"s"`
}

// Encode serializes a session into its stored form.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if s.ID == "" {
		return nil, errors.New("session id required")
	}
	return json.Marshal(envelope{Version: schemaVersion, Session: s})
}

// Decode reverses [Encode].
func Decode(data []byte) (*Session, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if env.Version != schemaVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptSession, env.Version)
	}
	if env.Session == nil || env.Session.ID == "" {
		return nil, ErrCorruptSession
	}
	return env.Session, nil
}
