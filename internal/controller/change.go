package controller

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const unchangedLabel = "="

// describeChange lists the edits turning seed into candidate, one entry per
// differing run of characters, e.g. "1:a→4 5:w→W". Positions are rune offsets.
func describeChange(seed, candidate string) string {
	a, b := splitRunes(seed), splitRunes(candidate)
	matcher := difflib.NewMatcher(a, b)

	var parts []string

	for _, op := range matcher.GetOpCodes() {
		from := strings.Join(a[op.I1:op.I2], "")
		to := strings.Join(b[op.J1:op.J2], "")

		switch op.Tag {
		case 'r':
			parts = append(parts, fmt.Sprintf("%d:%s→%s", op.I1, from, to))
		case 'd':
			parts = append(parts, fmt.Sprintf("%d:-%s", op.I1, from))
		case 'i':
			parts = append(parts, fmt.Sprintf("%d:+%s", op.I1, to))
		}
	}

	if len(parts) == 0 {
		return unchangedLabel
	}

	return strings.Join(parts, " ")
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}

	return out
}
