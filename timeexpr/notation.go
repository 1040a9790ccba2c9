package timeexpr

import (
	"math"
	"strconv"
	"strings"
)

var (
	standardNotations = []string{"1m", "2n", "4n", "8n", "16n", "32n", "64n", "128n"}
	tripletNotations  = []string{"1m", "2n", "2t", "4n", "4t", "8n", "8t", "16n", "16t", "32n", "32t", "64n", "64t", "128n"}
)

const notationEpsilon = 1e-6

// ToNotation expresses a duration in seconds as the shortest sum of note
// values between a measure and a 128th note. Triplets are only used when they
// need fewer terms. Durations shorter than a 128th note are "0".
func ToNotation(seconds float64, ctx Context) string {
	standard := notationTerms(seconds, standardNotations, ctx)
	triplet := notationTerms(seconds, tripletNotations, ctx)

	if len(triplet) < len(standard) {
		return joinTerms(triplet)
	}
	return joinTerms(standard)
}

func notationTerms(seconds float64, notations []string, ctx Context) []string {
	threshold := notationSeconds(notations[len(notations)-1], ctx)

	var terms []string
	remaining := seconds
	for _, notation := range notations {
		if remaining < threshold {
			break
		}
		length := notationSeconds(notation, ctx)
		multiple := remaining / length
		if 1-math.Mod(multiple, 1) < notationEpsilon {
			multiple += notationEpsilon
		}
		multiple = math.Floor(multiple)
		if multiple <= 0 {
			continue
		}

		if multiple == 1 {
			terms = append(terms, notation)
		} else {
			terms = append(terms, strconv.FormatFloat(multiple, 'f', -1, 64)+"*"+notation)
		}
		remaining -= multiple * length
	}
	return terms
}

func joinTerms(terms []string) string {
	if len(terms) == 0 {
		return "0"
	}
	return strings.Join(terms, " + ")
}

func notationSeconds(notation string, ctx Context) float64 {
	return MustParse(notation, Seconds).Value(ctx)
}
