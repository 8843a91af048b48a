package parsing

import "strings"

// Line is one non-empty row of the itemised region, tagged as product or not.
type Line struct {
	Number    int    `json:"line_number"`
	Text      string `json:"text"`
	IsProduct bool   `json:"is_product"`
}

// Result holds everything the heuristics recovered from one receipt.
type Result struct {
	Format   MerchantFormat `json:"format"`
	Store    string         `json:"place"`
	Date     string         `json:"date"`
	Products []ProductLine  `json:"products"`
	Lines    []Line         `json:"lines"`
}

// strategy bundles the extraction rules of one merchant layout.
type strategy struct {
	region func(text string) string
	item   func(row string) (ProductLine, bool)
}

var strategies = map[MerchantFormat]strategy{
	FormatLidl:    {region: suffixTagRegion, item: suffixTagItem},
	FormatKGroup:  {region: commaDecimalRegion, item: commaDecimalItem},
	FormatSGroup:  {region: commaDecimalRegion, item: commaDecimalItem},
	FormatUnknown: {region: commaDecimalRegion, item: commaDecimalItem},
}

func strategyFor(format MerchantFormat) strategy {
	if s, ok := strategies[format]; ok {
		return s
	}
	return strategies[FormatUnknown]
}

// Parse extracts store, date and item lines from raw OCR text without any
// network call. Missing fields are returned empty.
func Parse(text string) Result {
	format := DetectFormat(text)
	rules := strategyFor(format)

	res := Result{
		Format:   format,
		Store:    Store(text, format),
		Date:     Date(text, format),
		Products: make([]ProductLine, 0),
		Lines:    make([]Line, 0),
	}

	n := 0
	for _, row := range splitLines(rules.region(text)) {
		if strings.TrimSpace(row) == "" {
			continue
		}
		p, ok := rules.item(row)
		if ok {
			res.Products = append(res.Products, p)
		}
		res.Lines = append(res.Lines, Line{Number: n, Text: row, IsProduct: ok})
		n++
	}
	return res
}
