package domain

import "math/rand"

// indexedChoice picks a uniformly random position of runes and returns it
// together with the rune found there. ok is false for an empty slice.
func indexedChoice(rng *rand.Rand, runes []rune) (index int, r rune, ok bool) {
	if len(runes) == 0 {
		return 0, 0, false
	}

	index = rng.Intn(len(runes))

	return index, runes[index], true
}

// substitute makes up to limit attempts to find a rune of input that is a key
// of table and replaces the first one found with a random candidate. When no
// attempt hits a key, input is returned unchanged.
func substitute(rng *rand.Rand, input string, table Table, limit int) string {
	runes := []rune(input)

	for range limit {
		index, r, ok := indexedChoice(rng, runes)
		if !ok {
			return input
		}

		candidates := table[r]
		if len(candidates) == 0 {
			continue
		}

		runes[index] = candidates[rng.Intn(len(candidates))]

		return string(runes)
	}

	return input
}

// overwrite replaces one random rune of input with a random rune from chars.
// Any position is eligible, so a single attempt is enough. The rune already at
// the position is excluded from the draw unless it is the only choice.
func overwrite(rng *rand.Rand, input string, chars []rune) string {
	runes := []rune(input)

	index, current, ok := indexedChoice(rng, runes)
	if !ok || len(chars) == 0 {
		return input
	}

	choices := make([]rune, 0, len(chars))

	for _, c := range chars {
		if c != current {
			choices = append(choices, c)
		}
	}

	if len(choices) == 0 {
		choices = chars
	}

	runes[index] = choices[rng.Intn(len(choices))]

	return string(runes)
}
