package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTable_LastRowWins(t *testing.T) {
	table := buildTable([]tableEntry{{'x', "12"}, {'y', "3"}, {'x', "45"}})

	assert.Equal(t, []rune("45"), table['x'])
	assert.Equal(t, []rune("3"), table['y'])
	assert.Len(t, table, 2)
}

func TestHomoglyphTable_LowercaseAUsesLaterRow(t *testing.T) {
	assert.Equal(t, []rune("àáâãäå"), homoglyphTable['a'])
	assert.Equal(t, []rune("ÀÁÂÃÄÅ"), homoglyphTable['A'])
}

func TestLeetTable(t *testing.T) {
	tests := []struct {
		key  rune
		want string
	}{
		{'a', "4@"},
		{'I', "1!"},
		{'t', "7"},
		{'o', "0"},
		{'S', "5"},
		{'v', "∨"},
		{'E', "3"},
		{'g', "9"},
		{'c', "(k"},
		{'C', "(K"},
		{'k', "c"},
		{'K', "C"},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			assert.Equal(t, []rune(tt.want), leetTable[tt.key])
		})
	}

	_, ok := leetTable['x']
	assert.False(t, ok)
}

func TestCaseTables(t *testing.T) {
	require.Len(t, uppercaseTable, 26)
	require.Len(t, lowercaseTable, 26)

	for i, r := range lowercaseLetters {
		upper := rune(uppercaseLetters[i])
		assert.Equal(t, []rune{upper}, uppercaseTable[r])
		assert.Equal(t, []rune{r}, lowercaseTable[upper])
	}

	_, ok := uppercaseTable['A']
	assert.False(t, ok, "uppercase letters are not keys of the uppercase table")
}

func TestSpecialRunes(t *testing.T) {
	assert.Equal(t, []rune{'.', '*', '#'}, specialRunes)
}

func TestNewTable(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		table, err := NewTable(map[string][]string{
			"а": {"a"},
			"e": {"е", "ё"},
		})
		require.NoError(t, err)
		assert.Equal(t, []rune{'a'}, table['а'])
		assert.Equal(t, []rune{'е', 'ё'}, table['e'])
	})

	errorCases := []struct {
		name          string
		substitutions map[string][]string
	}{
		{"multi character key", map[string][]string{"ab": {"c"}}},
		{"empty key", map[string][]string{"": {"c"}}},
		{"no replacements", map[string][]string{"a": {}}},
		{"multi character replacement", map[string][]string{"v": {`\/`}}},
		{"empty replacement", map[string][]string{"a": {""}}},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.substitutions)
			require.Error(t, err)
		})
	}
}
