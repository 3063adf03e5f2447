package search

import "github.com/blevesearch/bleve/v2/analysis"

// Czech stop set (Lucene's list) plus the most frequent English function words.
// Matching is done on folded forms, so "při" and "pri" are both dropped.
var stopWordList = []string{
	// Czech
	"a", "s", "k", "o", "i", "u", "v", "z", "dnes", "cz", "tímto", "budeš", "budem", "byli",
	"jseš", "můj", "svým", "ta", "tomto", "tohle", "tuto", "tyto", "jej", "zda", "proč", "máte",
	"tato", "kam", "tohoto", "kdo", "kteří", "mi", "nám", "tom", "tomuto", "mít", "nic", "proto",
	"kterou", "byla", "toho", "protože", "asi", "ho", "naši", "napište", "re", "což", "tím",
	"takže", "svých", "její", "svými", "jste", "aj", "tu", "tedy", "teto", "bylo", "kde", "ke",
	"pravé", "ji", "nad", "nejsou", "či", "pod", "téma", "mezi", "přes", "ty", "pak", "vám",
	"ani", "když", "však", "neg", "jsem", "tento", "článku", "články", "aby", "jsme", "před",
	"pta", "jejich", "byl", "ještě", "až", "bez", "také", "pouze", "první", "vaše", "která",
	"nás", "nový", "tipy", "pokud", "může", "strana", "jeho", "své", "jiné", "zprávy", "nové",
	"není", "vás", "jen", "podle", "zde", "už", "být", "více", "bude", "již", "než", "který",
	"by", "které", "co", "nebo", "ten", "tak", "má", "při", "od", "po", "jsou", "jak", "další",
	"ale", "si", "se", "ve", "to", "jako", "za", "zpět", "ze", "do", "pro", "je", "na", "atd",
	"atp", "jakmile", "přičemž", "já", "on", "ona", "ono", "oni", "ony", "my", "vy", "jí", "mě",
	"mne", "jemu", "tomu", "těm", "těmu", "němu", "němuž", "jehož", "jíž", "jelikož", "jež",
	"jakož", "načež",
	// English
	"an", "and", "are", "as", "at", "be", "but", "for", "if", "in", "into", "is", "it", "no",
	"not", "of", "or", "such", "that", "the", "their", "then", "there", "these", "they",
	"this", "was", "will", "with",
}

// stopTokens holds every stop word both as written and folded, so the stop
// filter matches lowercased tokens before diacritics are removed.
var stopTokens = func() analysis.TokenMap {
	m := analysis.NewTokenMap()
	for _, w := range stopWordList {
		m.AddToken(w)
		m.AddToken(Fold(w))
	}
	return m
}()

// IsStopWord reports whether the lowercased token is a stop word.
func IsStopWord(token string) bool {
	_, ok := stopTokens[token]
	return ok
}
