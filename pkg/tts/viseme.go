package tts

import "strings"

// phonemeToViseme maps phoneme tags to a reduced viseme set for lip-sync
// animation. Unknown phonemes fall back to the silent viseme.
var phonemeToViseme = map[string]string{
	"p": "PP", "b": "PP", "m": "PP",
	"f": "FF", "v": "FF",
	"t": "DD", "d": "DD", "s": "SS", "z": "SS", "n": "nn", "l": "nn",
	"k": "kk", "g": "kk", "h": "kk",
	"i": "I", "a": "A", "u": "U", "e": "E", "o": "O",
}

const visemeSilent = "sil"

// NormalizePhonemes converts a phoneme sequence to visemes, preserving timing.
func NormalizePhonemes(phonemes []Phoneme) []Viseme {
	visemes := make([]Viseme, len(phonemes))
	for i, p := range phonemes {
		tag, ok := phonemeToViseme[strings.ToLower(p.Tag)]
		if !ok {
			tag = visemeSilent
		}
		visemes[i] = Viseme{Tag: tag, StartSec: p.StartSec, EndSec: p.EndSec}
	}
	return visemes
}
