package parsing

import "strings"

// MerchantFormat identifies the point-of-sale print layout that produced a receipt.
type MerchantFormat int

const (
	FormatUnknown MerchantFormat = iota
	FormatLidl
	FormatKGroup
	FormatSGroup
)

// formatKeywords is checked in order; the first keyword present decides the format.
var formatKeywords = []struct {
	keyword string
	format  MerchantFormat
}{
	{"lidl", FormatLidl},
	{"plussa", FormatKGroup},
	{"bonus", FormatSGroup},
}

// DetectFormat finds the merchant format by case-insensitive keyword search.
func DetectFormat(text string) MerchantFormat {
	lower := strings.ToLower(text)
	for _, fk := range formatKeywords {
		if strings.Contains(lower, fk.keyword) {
			return fk.format
		}
	}
	return FormatUnknown
}

func (f MerchantFormat) String() string {
	switch f {
	case FormatLidl:
		return "LIDL"
	case FormatKGroup:
		return "K_GROUP"
	case FormatSGroup:
		return "S_GROUP"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler so formats serialise by name.
func (f MerchantFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode to FormatUnknown.
func (f *MerchantFormat) UnmarshalText(text []byte) error {
	switch string(text) {
	case "LIDL":
		*f = FormatLidl
	case "K_GROUP":
		*f = FormatKGroup
	case "S_GROUP":
		*f = FormatSGroup
	default:
		*f = FormatUnknown
	}
	return nil
}
