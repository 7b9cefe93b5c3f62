package enums

import "fmt"

// PromocodeType selects how a promocode discount is computed.
type PromocodeType string

const (
	PromocodeTypePercent PromocodeType = "percent"
	PromocodeTypeFixed   PromocodeType = "fixed"
)

var validPromocodeTypes = []PromocodeType{
	PromocodeTypePercent,
	PromocodeTypeFixed,
}

// String implements fmt.Stringer.
func (p PromocodeType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromocodeType.
func (p PromocodeType) IsValid() bool {
	for _, candidate := range validPromocodeTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromocodeType converts raw input into a PromocodeType.
func ParsePromocodeType(value string) (PromocodeType, error) {
	for _, candidate := range validPromocodeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promocode type %q", value)
}
