package crs

import "strconv"

// Projected EPSG systems whose first axis is northing.
var northingFirstProjected = map[int]bool{
	2180:  true,
	3034:  true,
	3035:  true,
	3844:  true,
	5048:  true,
	31466: true,
	31467: true,
	31468: true,
	31469: true,
}

// northingFirst reports whether an EPSG code lists latitude or northing
// first. Geographic systems occupy 4000-4999; 4328 and 4978 are geocentric.
func northingFirst(code string) bool {
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	switch {
	case n == 4328 || n == 4978:
		return false
	case n >= 4000 && n < 5000:
		return true
	default:
		return northingFirstProjected[n]
	}
}
