package domain

import (
	"fmt"
	"unicode/utf8"
)

// Table maps a source rune to the runes it may be replaced with.
type Table map[rune][]rune

// tableEntry is one authored row of a substitution table. Every rune of
// replacements is a separate candidate.
type tableEntry struct {
	key          rune
	replacements string
}

// buildTable turns authored rows into a Table. Keys that appear more than once
// keep the row written last.
func buildTable(entries []tableEntry) Table {
	table := make(Table, len(entries))
	for _, e := range entries {
		table[e.key] = []rune(e.replacements)
	}

	return table
}

// caseTable maps every rune of from to the rune at the same index of to.
func caseTable(from, to string) Table {
	src, dst := []rune(from), []rune(to)
	table := make(Table, len(src))

	for i, r := range src {
		table[r] = []rune{dst[i]}
	}

	return table
}

// NewTable validates a user supplied substitution map. Keys and replacements
// must be single runes so a substitution never changes the string length.
func NewTable(substitutions map[string][]string) (Table, error) {
	table := make(Table, len(substitutions))

	for key, values := range substitutions {
		if utf8.RuneCountInString(key) != 1 {
			return nil, fmt.Errorf("substitution key %q is not a single character", key)
		}

		if len(values) == 0 {
			return nil, fmt.Errorf("substitution key %q has no replacements", key)
		}

		runes := make([]rune, 0, len(values))

		for _, v := range values {
			if utf8.RuneCountInString(v) != 1 {
				return nil, fmt.Errorf("replacement %q for key %q is not a single character", v, key)
			}

			r, _ := utf8.DecodeRuneInString(v)
			runes = append(runes, r)
		}

		k, _ := utf8.DecodeRuneInString(key)
		table[k] = runes
	}

	return table, nil
}

const (
	lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"
	uppercaseLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	specialChars     = ".*#"
)

// Shared read-only tables, built once.
var (
	leetTable = buildTable([]tableEntry{
		{'a', "4@"}, {'A', "4@"},
		{'i', "1!"}, {'I', "1!"},
		{'t', "7"}, {'T', "7"},
		{'o', "0"}, {'O', "0"},
		{'s', "5"}, {'S', "5"},
		{'v', "∨"}, {'V', "∨"}, // stands in for the two character "\/"
		{'e', "3"}, {'E', "3"},
		{'g', "9"}, {'G', "9"},
		{'c', "(k"}, {'C', "(K"},
		{'k', "c"}, {'K', "C"},
	})

	homoglyphTable = buildTable([]tableEntry{
		{'c', "¢©Çç"},
		{'S', "$"},
		{'E', "€ÈÉÊË"},
		{'C', "©Çç"},
		{'a', "ª"},
		{'R', "®"},
		{'A', "ÀÁÂÃÄÅ"},
		{'I', "ÌÍÎÏ"},
		{'D', "Ð"},
		{'N', "Ñ"},
		{'O', "ÒÓÔÕÖØðø"},
		{'X', "×"}, {'x', "×"},
		{'U', "ÙÚÛÜ"},
		{'Y', "Ý"},
		{'P', "Þ"}, {'p', "Þ"},
		{'B', "ß"},
		{'a', "àáâãäå"}, // overrides the earlier 'a' row
		{'e', "èéêë"},
		{'i', "ìíîï"},
		{'o', "ðòóôõöø"},
		{'n', "ñ"},
		{'u', "ùúûü"},
		{'y', "ýÿ"},
		{'H', "ĤĦ"},
		{'h', "ĥ"},
		{'k', "ķ"},
	})

	uppercaseTable = caseTable(lowercaseLetters, uppercaseLetters)
	lowercaseTable = caseTable(uppercaseLetters, lowercaseLetters)

	specialRunes = []rune(specialChars)
)
