package enums

import "fmt"

// CuratedList names one of the home page merchandising lists.
type CuratedList string

const (
	CuratedListNewArrival    CuratedList = "newArrival"
	CuratedListHotItems      CuratedList = "hotItems"
	CuratedListTrandingItems CuratedList = "trandingItems"
)

var validCuratedLists = []CuratedList{
	CuratedListNewArrival,
	CuratedListHotItems,
	CuratedListTrandingItems,
}

// CuratedLists returns the lists in display order.
func CuratedLists() []CuratedList {
	out := make([]CuratedList, len(validCuratedLists))
	copy(out, validCuratedLists)
	return out
}

func (c CuratedList) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CuratedList.
func (c CuratedList) IsValid() bool {
	for _, candidate := range validCuratedLists {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCuratedList converts raw input into a CuratedList. Matching is exact.
func ParseCuratedList(value string) (CuratedList, error) {
	for _, candidate := range validCuratedLists {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid curated list %q", value)
}
