package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDisplayName(t *testing.T) {
	req := require.New(t)

	name, err := NewDisplayName("  alice \n")
	req.NoError(err)
	req.Equal(DisplayName("alice"), name)

	_, err = NewDisplayName("   ")
	req.ErrorIs(err, ErrNameEmpty)

	_, err = NewDisplayName(strings.Repeat("x", MaxDisplayNameLen+1))
	req.ErrorIs(err, ErrNameTooLong)

	// Multi-byte names are measured in runes, not bytes.
	name, err = NewDisplayName(strings.Repeat("é", MaxDisplayNameLen))
	req.NoError(err)
	req.Len([]rune(string(name)), MaxDisplayNameLen)
}

func TestNewEnvelope_FormatsHourMinute(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 9, 7, 5, 59, 0, time.UTC)

	env := NewEnvelope("alice", "bob", "hi", at, time.UTC)

	req.Equal("07:05", env.Time)
	req.Equal(DisplayName("alice"), env.From)
	req.Equal(DisplayName("bob"), env.To)
	req.Equal("hi", env.Text)
	req.Equal(at, env.SentAt)
}

func TestNewEnvelope_UsesLocation(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+2", 2*60*60)

	env := NewEnvelope("alice", "bob", "hi", at, loc)

	req.Equal("01:30", env.Time)
}

func TestNormalizeText(t *testing.T) {
	req := require.New(t)

	text, err := NormalizeText("  hello  ", 0)
	req.NoError(err)
	req.Equal("hello", text)

	_, err = NormalizeText(" \t ", 10)
	req.ErrorIs(err, ErrTextEmpty)

	_, err = NormalizeText("abcdef", 5)
	req.ErrorIs(err, ErrTextTooLong)

	text, err = NormalizeText("abcde", 5)
	req.NoError(err)
	req.Equal("abcde", text)
}
