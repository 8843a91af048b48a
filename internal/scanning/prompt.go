package scanning

import (
	"fmt"
	"strings"
)

const (
	// temperature is fixed at zero to ask for deterministic output.
	temperature = 0
	// maxResponseTokens caps the size of the oracle's answer.
	maxResponseTokens = 2048
)

const systemPrompt = "You are a receipt parser. Return only valid JSON."

// receiptVisionPrompt is the shared prompt used by all providers when an image is attached
const receiptVisionPrompt = `Read this receipt and extract:
1. The store name, cleaned of asterisks
2. The date exactly as printed
3. Every text line of the receipt, classified as PRODUCT (1) or NOT PRODUCT (0)

Stop at the total line ("Yhteensä" or "YHTEENSÄ").

Return JSON in this exact shape:
{
  "store": "store name",
  "date": "date as printed",
  "classifications": [
    {"line_number": 0, "text": "line text", "is_product": 0}
  ]
}

Be strict: only items that were actually purchased are products (1).
Do not include any text before or after the JSON.`

const receiptTextPromptHeader = `Classify each line of this receipt text as a PRODUCT (1) or NOT A PRODUCT (0).

Products are purchased goods and usually carry a price.
Not products: store names, addresses, dates, times, totals and subtotals, payment details,
VAT summaries, greetings, headers and footers.

Receipt text:
`

const receiptTextPromptFooter = `

Return ONLY a JSON object in this exact shape:
{
  "classifications": [
    {"line_number": 0, "text": "first line text", "is_product": 0}
  ]
}

Be strict: only clear product lines are 1.`

// NumberedLines returns the non-empty rows of text prefixed with their index.
func NumberedLines(text string) []string {
	out := make([]string, 0)
	for _, row := range strings.Split(text, "\n") {
		row = strings.TrimRight(row, "\r")
		if strings.TrimSpace(row) == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%d: %s", len(out), row))
	}
	return out
}

// buildPrompt returns the user prompt for the given content.
func buildPrompt(content Content) string {
	if content.IsImage() {
		return receiptVisionPrompt
	}
	return receiptTextPromptHeader + strings.Join(NumberedLines(content.Text), "\n") + receiptTextPromptFooter
}
