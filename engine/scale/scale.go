package scale

import "math"

// Clamp limits t to the interval between min and max, in either order.
func Clamp(t, min, max float64) float64 {
	min, max = math.Min(min, max), math.Max(min, max)
	return math.Max(math.Min(t, max), min)
}

// Linear returns a function that maps [rMin,rMax] onto [tMin,tMax] without clamping.
func Linear(rMin, rMax, tMin, tMax float64) func(m float64) float64 {
	return func(m float64) float64 {
		if rMax == rMin {
			return tMin
		}
		return tMin + (m-rMin)/(rMax-rMin)*(tMax-tMin)
	}
}

// ToUnitClamp returns a function that scales a number from the interval [rMin,rMax]
// to the unit interval ([0,1]), if the result falls outside [0,1], it is clamped
// to 0 or 1.
func ToUnitClamp(rMin, rMax float64) func(m float64) float64 {
	toUnit := Linear(rMin, rMax, 0, 1)
	return func(m float64) float64 {
		return Clamp(toUnit(m), 0, 1)
	}
}
