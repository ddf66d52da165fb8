package ics

import (
	"bytes"
	"strings"
)

// Sanitize drops every PRODID line after the first and every line that
// mentions TZUNTIL. Merged feeds often repeat PRODID, and the parser
// rejects both.
func Sanitize(body []byte) []byte {
	lines := bytes.SplitAfter(body, []byte("\n"))
	out := make([]byte, 0, len(body))
	seenProdID := false
	for _, line := range lines {
		text := strings.TrimSpace(string(line))
		if strings.HasPrefix(strings.ToUpper(text), "PRODID") {
			if seenProdID {
				continue
			}
			seenProdID = true
		}
		if strings.Contains(strings.ToUpper(text), "TZUNTIL") {
			continue
		}
		out = append(out, line...)
	}
	return out
}
