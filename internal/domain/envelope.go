package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// TimeLayout is the hour:minute stamp clients display next to a message.
const TimeLayout = "15:04"

var (
	ErrTextEmpty   = errors.New("message text empty")
	ErrTextTooLong = errors.New("message text too long")
)

// Envelope is a single directed message. It lives only for the duration of
// one routing call; stores may keep their own copy.
type Envelope struct {
	From   DisplayName `json:"from"`
	To     DisplayName `json:"to"`
	Text   string      `json:"text"`
	Time   string      `json:"time"`
	SentAt time.Time   `json:"sent_at"`
}

func NewEnvelope(from, to DisplayName, text string, at time.Time, loc *time.Location) Envelope {
	if loc == nil {
		loc = time.Local
	}
	return Envelope{
		From:   from,
		To:     to,
		Text:   text,
		Time:   at.In(loc).Format(TimeLayout),
		SentAt: at,
	}
}

// NormalizeText trims text and enforces maxLen (in runes). maxLen <= 0 disables the limit.
func NormalizeText(text string, maxLen int) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", ErrTextEmpty
	}
	if maxLen > 0 && utf8.RuneCountInString(t) > maxLen {
		return "", ErrTextTooLong
	}
	return t, nil
}
