package search

import (
	"slices"
	"testing"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"příliš":    "prilis",
		"žluťoučký": "zlutoucky",
		"kůň":       "kun",
		"Łódź":      "Lodz",
		"plain":     "plain",
		"straße":    "strasse",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStem_CommutesWithFolding(t *testing.T) {
	words := []string{"příliš", "žluťoučký", "kůň", "hradech", "městem", "ženami", "dokumentů", "zprávách"}
	for _, w := range words {
		if a, b := Fold(Stem(w)), Stem(Fold(w)); a != b {
			t.Errorf("%q: fold(stem) = %q, stem(fold) = %q", w, a, b)
		}
	}
}

func TestStem(t *testing.T) {
	cases := map[string]string{
		"hello":     "hell",
		"helo":      "hel",
		"kůň":       "kůň",
		"hradech":   "hrad",
		"žluťoučký": "žluťoučk",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyze_Symmetric(t *testing.T) {
	a := Analyze("Příliš žluťoučký kůň")
	b := Analyze("prilis zlutoucky kun")
	if !slices.Equal(a, b) {
		t.Fatalf("accented %v != plain %v", a, b)
	}
	want := []string{"prilis", "zlutouck", "kun"}
	if !slices.Equal(a, want) {
		t.Errorf("Analyze = %v, want %v", a, want)
	}
}

func TestAnalyze_DropsStopWords(t *testing.T) {
	got := Analyze("the report and při pri zpráva")
	want := []string{"report", "zprav"}
	if !slices.Equal(got, want) {
		t.Errorf("Analyze = %v, want %v", got, want)
	}
}

func TestIsStopWord_AccentedAndFolded(t *testing.T) {
	for _, w := range []string{"při", "pri", "protože", "protoze", "the"} {
		if !IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = false", w)
		}
	}
	if IsStopWord("zpráva") {
		t.Error("zpráva is not a stop word")
	}
}
