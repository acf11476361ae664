package theses

import "strings"

// unrankedPosition is assigned to section titles whose numeral prefix is
// missing or unparseable; such sections sort last and, once present, push
// newly numbered sections past them.
const unrankedPosition = 999

var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "M"},
	{900, "CM"},
	{500, "D"},
	{400, "CD"},
	{100, "C"},
	{90, "XC"},
	{50, "L"},
	{40, "XL"},
	{10, "X"},
	{9, "IX"},
	{5, "V"},
	{4, "IV"},
	{1, "I"},
}

var romanDigits = map[byte]int{
	'I': 1,
	'V': 5,
	'X': 10,
	'L': 50,
	'C': 100,
	'D': 500,
	'M': 1000,
}

// romanNumeral renders a positive ordinal as an upper-case Roman numeral.
func romanNumeral(value int) string {
	if value <= 0 {
		return ""
	}
	var builder strings.Builder
	for _, entry := range romanValues {
		for value >= entry.value {
			builder.WriteString(entry.symbol)
			value -= entry.value
		}
	}
	return builder.String()
}

// parseRoman converts an upper-case Roman numeral to its integer value.
// The boolean result reports whether the input was a well-formed numeral.
func parseRoman(numeral string) (int, bool) {
	if numeral == "" {
		return 0, false
	}
	total := 0
	previous := 0
	for i := len(numeral) - 1; i >= 0; i-- {
		digit, ok := romanDigits[numeral[i]]
		if !ok {
			return 0, false
		}
		if digit < previous {
			total -= digit
		} else {
			total += digit
			previous = digit
		}
	}
	if total <= 0 || romanNumeral(total) != numeral {
		return 0, false
	}
	return total, true
}

// sectionPosition extracts the ordinal encoded in a section title's numeral
// prefix ("III. Sources" -> 3). Titles without a recognizable prefix are
// treated as position 999.
func sectionPosition(title string) int {
	prefix, _, found := strings.Cut(title, ".")
	if !found {
		return unrankedPosition
	}
	value, ok := parseRoman(strings.TrimSpace(prefix))
	if !ok {
		return unrankedPosition
	}
	return value
}
