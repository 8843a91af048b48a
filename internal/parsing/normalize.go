package parsing

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// totalMarkers end the itemised part of a receipt. Order matters: the first
// marker found wins.
var totalMarkers = []string{"YHTEENSÄ", "Yhteensä"}

// Normalize drops everything from the first total marker onwards.
// Text without a marker is returned unchanged.
func Normalize(text string) string {
	if cut, ok := cutAtTotal(text); ok {
		return cut
	}
	// OCR engines sometimes emit a decomposed Ä (A + combining diaeresis).
	composed := norm.NFC.String(text)
	if composed != text {
		if cut, ok := cutAtTotal(composed); ok {
			return cut
		}
	}
	return text
}

func cutAtTotal(text string) (string, bool) {
	for _, marker := range totalMarkers {
		if before, _, found := strings.Cut(text, marker); found {
			return before, true
		}
	}
	return "", false
}

// splitLines splits on newlines and drops carriage returns left by CRLF input.
func splitLines(text string) []string {
	rows := strings.Split(text, "\n")
	for i, row := range rows {
		rows[i] = strings.TrimRight(row, "\r")
	}
	return rows
}

// runeFromEnd returns the n-th rune counted from the end (1 = last).
func runeFromEnd(s string, n int) (rune, bool) {
	r := []rune(s)
	if n <= 0 || len(r) < n {
		return 0, false
	}
	return r[len(r)-n], true
}
