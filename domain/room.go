package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type RoomID int64

type Room struct {
	ID        RoomID
	Name      string
	IsPrivate bool
	CreatedAt time.Time
	Members   []UserID
}

func (r Room) HasMember(userID UserID) bool {
	return lo.Contains(r.Members, userID)
}

// combiningDiacriticalMarks is the U+0300..U+036F block.
var combiningDiacriticalMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

// CanonicalRoomName lower-cases raw, decomposes it (NFD), drops combining
// diacritical marks and replaces every rune outside [a-z0-9] with '-'.
// "Café Crème!" becomes "cafe-creme-".
func CanonicalRoomName(raw string) string {
	lowered := strings.ToLower(raw)
	// transform.Chain is stateful, one per call
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(combiningDiacriticalMarks)))
	stripped, _, err := transform.String(stripper, lowered)
	if err != nil {
		stripped = lowered
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, stripped)
}
