package parsing

import "strings"

// Store returns the merchant line of a receipt. Lidl prints its name on a
// line of its own somewhere near the top; the other layouts start with it.
func Store(text string, format MerchantFormat) string {
	rows := splitLines(text)
	if format == FormatLidl {
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row), "lidl") {
				return cleanStore(row)
			}
		}
	}
	for _, row := range rows {
		if strings.TrimSpace(row) != "" {
			return cleanStore(row)
		}
	}
	return ""
}

func cleanStore(row string) string {
	return strings.TrimSpace(strings.ReplaceAll(row, "*", ""))
}
