package parsing

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// depositKeywords mark returnable-container charges, which are never products.
var depositKeywords = []string{"pullopantti", "pantti"}

// ProductLine is a purchased item recovered by the text heuristics.
type ProductLine struct {
	Name  string `json:"product"`
	Price string `json:"price"`
}

// Amount parses the comma-decimal price token.
func (p ProductLine) Amount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.Replace(p.Price, ",", ".", 1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing price %q: %w", p.Price, err)
	}
	return d, nil
}

// Products returns the priced item lines of a receipt.
func Products(text string, format MerchantFormat) []ProductLine {
	rules := strategyFor(format)
	products := make([]ProductLine, 0)
	for _, row := range splitLines(rules.region(text)) {
		if p, ok := rules.item(row); ok {
			products = append(products, p)
		}
	}
	return products
}

// commaDecimalRegion is the text above the total marker.
func commaDecimalRegion(text string) string {
	return Normalize(text)
}

// commaDecimalItem accepts rows ending in a price like 2,49.
func commaDecimalItem(row string) (ProductLine, bool) {
	if !strings.Contains(row, ",") {
		return ProductLine{}, false
	}
	last, ok := runeFromEnd(row, 1)
	if !ok || !unicode.IsDigit(last) {
		return ProductLine{}, false
	}
	if sep, ok := runeFromEnd(row, 3); !ok || sep != ',' {
		return ProductLine{}, false
	}
	if isDeposit(row) {
		return ProductLine{}, false
	}
	return newProductLine(row), true
}

// suffixTagRegion is the block between the EUR header and the total marker.
func suffixTagRegion(text string) string {
	_, after, found := strings.Cut(text, "EUR")
	if !found {
		return ""
	}
	if before, _, found := strings.Cut(after, "EUR"); found {
		after = before
	}
	return Normalize(after)
}

// suffixTagItem accepts rows tagged with a VAT category letter (A or B).
func suffixTagItem(row string) (ProductLine, bool) {
	if row == "" {
		return ProductLine{}, false
	}
	last, _ := runeFromEnd(row, 1)
	if last != 'A' && last != 'B' {
		return ProductLine{}, false
	}
	if isDeposit(row) {
		return ProductLine{}, false
	}
	trimmed := strings.TrimSuffix(row, " B")
	trimmed = strings.TrimSuffix(trimmed, " A")
	return newProductLine(trimmed), true
}

func isDeposit(row string) bool {
	lower := strings.ToLower(row)
	for _, kw := range depositKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// newProductLine takes the last space-separated token as the price and
// everything but the final four runes as the name.
func newProductLine(row string) ProductLine {
	fields := strings.Split(row, " ")
	r := []rune(row)
	name := ""
	if len(r) > 4 {
		name = strings.TrimSpace(string(r[:len(r)-4]))
	}
	return ProductLine{
		Name:  name,
		Price: fields[len(fields)-1],
	}
}
