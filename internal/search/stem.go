package search

import "slices"

// Light Czech stemmer (Dolamic & Savoy). Every suffix list carries both the
// accented and the unaccented spelling so that stemming commutes with folding.
var (
	suffixes4 = []string{"ětem", "etem", "atům", "atum"}
	suffixes3 = []string{
		"ech", "ich", "ích", "eho", "ého", "ěmi", "emi", "emu", "ému", "ěte", "ete", "ěti", "eti",
		"iho", "ího", "imi", "ími", "imu", "ímu", "ách", "ach", "ata", "aty", "ých", "ych", "ama", "ami",
		"ove", "ové", "ovi", "ymi", "ými",
	}
	suffixes2 = []string{"em", "es", "ém", "im", "ím", "ům", "um", "at", "ám", "am", "os", "us", "ým", "ym", "mi", "ou"}
	vowels    = []rune("aeiouůyáéíýě")
)

// Stem removes one inflectional suffix from a lowercased word.
func Stem(word string) string {
	r := []rune(word)
	n := len(r)

	if n > 7 && hasSuffix(r, "atech") {
		return string(r[:n-5])
	}
	if n > 6 && hasAnySuffix(r, suffixes4) {
		return string(r[:n-4])
	}
	if n > 5 && hasAnySuffix(r, suffixes3) {
		return string(r[:n-3])
	}
	if n > 4 && hasAnySuffix(r, suffixes2) {
		return string(r[:n-2])
	}
	if n > 3 && slices.Contains(vowels, r[n-1]) {
		return string(r[:n-1])
	}
	return word
}

func hasAnySuffix(r []rune, list []string) bool {
	for _, s := range list {
		if hasSuffix(r, s) {
			return true
		}
	}
	return false
}

func hasSuffix(r []rune, suffix string) bool {
	s := []rune(suffix)
	if len(s) > len(r) {
		return false
	}
	return slices.Equal(r[len(r)-len(s):], s)
}
