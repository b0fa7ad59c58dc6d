// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxDisplayNameLen = 36

var (
	ErrNameTooLong = errors.New("display name too long")
	ErrNameEmpty   = errors.New("display name empty")
)

// DisplayName is the self-chosen routing key of a connection.
type DisplayName string

func (n DisplayName) String() string { return string(n) }

// NewDisplayName trims raw and checks its length.
func NewDisplayName(raw string) (DisplayName, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return "", ErrNameTooLong
	}
	return DisplayName(name), nil
}

// User is what the persistence sink records about a display name.
type User struct {
	Name      DisplayName `json:"name"`
	FirstSeen time.Time   `json:"first_seen"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(name DisplayName, at time.Time) User {
	return User{Name: name, FirstSeen: at}
}
