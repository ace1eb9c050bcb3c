package runtime

import (
	"regexp"
	"strings"
)

var dunderPatternRuntime = regexp.MustCompile(`^__.*__$`)

func toUpper(s string) string  { return strings.ToUpper(s) }
func toLower(s string) string  { return strings.ToLower(s) }
func trimSpace(s string) string { return strings.TrimSpace(s) }

func splitString(s, sep string) *Sequence {
	parts := strings.Split(s, sep)
	items := make([]Value, 0, len(parts))
	for _, p := range parts {
		items = append(items, String(p))
	}
	return NewSequence(items...)
}
