package model

import "strings"

// City identifies one of the configured cities. Values are always normalized.
type City string

// NormalizeCity trims and lower-cases a raw city name.
func NormalizeCity(raw string) City {
	return City(strings.ToLower(strings.TrimSpace(raw)))
}

// String returns the normalized identifier.
func (c City) String() string {
	return string(c)
}

// Title returns a display form of the city ("madurai" -> "Madurai").
func (c City) Title() string {
	s := string(c)
	if s == "" {
		return ""
	}
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
