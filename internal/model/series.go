package model

// Series is a named classification of waveforms. A waveform belongs to a
// series when its name matches Pattern, which uses SQL LIKE syntax
// ("%" for any run of characters, "_" for exactly one).
type Series struct {
	ID          int64    `json:"seriesId"`
	Name        string   `json:"name"`
	Pattern     string   `json:"pattern"`
	System      string   `json:"system"`
	Description string   `json:"description"`
	Units       string   `json:"units"`
	YMin        *float64 `json:"y-min"`
	YMax        *float64 `json:"y-max"`
}

// Matches reports whether waveformName matches the series pattern.
func (s Series) Matches(waveformName string) bool {
	return likeMatch(s.Pattern, waveformName)
}

// likeMatch implements case-sensitive SQL LIKE without an escape character.
func likeMatch(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)
	pi, si := 0, 0
	starP, starS := -1, 0
	for si < len(r) {
		switch {
		case pi < len(p) && p[pi] == '%':
			starP, starS = pi, si
			pi++
		case pi < len(p) && (p[pi] == '_' || p[pi] == r[si]):
			pi++
			si++
		case starP >= 0:
			starS++
			pi, si = starP+1, starS
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
