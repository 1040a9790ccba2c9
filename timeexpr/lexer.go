package timeexpr

import (
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokenOperator tokenKind = iota
	tokenPrimary
	tokenGlue
)

type token struct {
	kind     tokenKind
	text     string
	unit     Unit
	captures []string
	offset   int
}

type production struct {
	unit   Unit
	regexp *regexp.Regexp
}

// Operators are tried before primaries, so a leading '+' or '-' always lexes
// as an operator and the parser decides whether it is unary.
var operators = []*regexp.Regexp{
	regexp.MustCompile(`^\+`),
	regexp.MustCompile(`^-`),
	regexp.MustCompile(`^\*`),
	regexp.MustCompile(`^/`),
	regexp.MustCompile(`^!`),
	regexp.MustCompile(`^@`),
}

// Order matters: "16samples" must not lex as "16s".
var primaries = []production{
	{UnitNote, regexp.MustCompile(`^(\d+)n(\.?)`)},
	{UnitTriplet, regexp.MustCompile(`^(\d+)t`)},
	{UnitMeasure, regexp.MustCompile(`^(\d+)m`)},
	{UnitTick, regexp.MustCompile(`^(\d+)i`)},
	{UnitHertz, regexp.MustCompile(`^(?i)(\d+(?:\.\d+)?)hz`)},
	{UnitPosition, regexp.MustCompile(`^(\d+(?:\.\d+)?):(\d+(?:\.\d+)?):?(\d+(?:\.\d+)?)?`)},
	{UnitSample, regexp.MustCompile(`^(\d+)samples`)},
	{UnitSecond, regexp.MustCompile(`^(\d+(?:\.\d+)?)s`)},
	{UnitNumber, regexp.MustCompile(`^(\d+(?:\.\d+)?)`)},
}

var glue = []*regexp.Regexp{
	regexp.MustCompile(`^\(`),
	regexp.MustCompile(`^\)`),
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	offset := 0

	for {
		rest := input[offset:]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		offset += len(rest) - len(trimmed)
		if trimmed == "" {
			return tokens, nil
		}

		tok, ok := nextToken(trimmed)
		if !ok {
			return nil, &SyntaxError{Input: input, Remainder: trimmed, Msg: "unexpected token"}
		}
		tok.offset = offset
		tokens = append(tokens, tok)
		offset += len(tok.text)
	}
}

func nextToken(s string) (token, bool) {
	for _, re := range operators {
		if m := re.FindString(s); m != "" {
			return token{kind: tokenOperator, text: m}, true
		}
	}
	for _, p := range primaries {
		if m := p.regexp.FindStringSubmatch(s); m != nil {
			return token{kind: tokenPrimary, text: m[0], unit: p.unit, captures: m[1:]}, true
		}
	}
	for _, re := range glue {
		if m := re.FindString(s); m != "" {
			return token{kind: tokenGlue, text: m}, true
		}
	}
	return token{}, false
}
