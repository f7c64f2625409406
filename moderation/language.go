package moderation

import (
	"github.com/abadojack/whatlanggo"
)

// Language returns the ISO 639-1 code of the language content is most
// likely written in, or "" when detection is not reliable.
func Language(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
