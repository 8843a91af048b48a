package parsing

import (
	"fmt"
	"strings"
	"unicode"
)

// Date returns the transaction date as printed. The value is not converted to
// ISO format; an empty string means no date row was found.
func Date(text string, format MerchantFormat) string {
	switch format {
	case FormatKGroup:
		return dateK(text)
	case FormatSGroup:
		return dateS(text)
	case FormatLidl:
		return dateL(text)
	default:
		return ""
	}
}

// dateK: the date closes the row, so the fifth rune from the end is the
// period before a four-digit year.
func dateK(text string) string {
	for _, row := range splitLines(text) {
		if strings.Count(row, ".") < 2 {
			continue
		}
		if r, ok := runeFromEnd(row, 5); !ok || r != '.' {
			continue
		}
		fields := strings.Split(row, " ")
		return fields[len(fields)-1]
	}
	return ""
}

func dateS(text string) string {
	for _, row := range splitLines(text) {
		if strings.Count(row, ".") < 2 {
			continue
		}
		if token, ok := firstDateToken(row); ok {
			return token
		}
	}
	return ""
}

// dateL: Lidl prints d.m.yy at the end of a row.
func dateL(text string) string {
	for _, row := range splitLines(text) {
		if strings.Count(row, ".") < 2 {
			continue
		}
		if r, ok := runeFromEnd(row, 1); !ok || !unicode.IsDigit(r) {
			continue
		}
		token, ok := firstDateToken(row)
		if !ok {
			continue
		}
		if r, ok := runeFromEnd(token, 3); ok && r == '.' {
			return expandYear(token)
		}
		return token
	}
	return ""
}

func firstDateToken(row string) (string, bool) {
	for _, token := range strings.Split(row, " ") {
		if strings.Count(token, ".") == 2 {
			return token, true
		}
	}
	return "", false
}

// expandYear turns 1.2.24 into 1.2.2024.
func expandYear(token string) string {
	parts := strings.Split(token, ".")
	return fmt.Sprintf("%s.%s.20%s", parts[0], parts[1], parts[2])
}

// DateRow returns the first row holding at least two periods, trimmed. It is
// the layout-free fallback when Date finds nothing.
func DateRow(text string) string {
	for _, row := range splitLines(text) {
		if strings.Count(row, ".") >= 2 {
			return strings.TrimSpace(row)
		}
	}
	return ""
}
