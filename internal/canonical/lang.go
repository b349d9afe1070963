package canonical

import "strings"

// BaseLang is the language everything falls back to.
const BaseLang = "en"

// TargetLangs are the languages answers are translated into.
var TargetLangs = []string{"en", "yo", "ig", "ha", "pcm"}

var langAliases = map[string]string{
	"en":      "en",
	"english": "en",

	"yo":     "yo",
	"yoruba": "yo",

	"ig":   "ig",
	"igbo": "ig",

	"ha":    "ha",
	"hausa": "ha",

	"pcm":             "pcm",
	"pidgin":          "pcm",
	"naija":           "pcm",
	"nigerian pidgin": "pcm",
}

var supportedLangs = map[string]struct{}{
	"en": {}, "yo": {}, "ig": {}, "ha": {}, "pcm": {},
}

var (
	yoTokens  = []string{"ẹni", "ṣé", "kini", "kí ni", "owo ori", "ìjọba", "jẹ́"}
	haTokens  = []string{"haraji", "me yasa", "yaya", "gwamnati", "kudin", "shin"}
	igTokens  = []string{"ụtụ", "gọọmenti", "kedu", "ego", "òlee", "gịnị"}
	pcmTokens = []string{"wetin", "how far", "abi", "na", "dey", "no be", "una"}
)

// NormalizeLang maps aliases like "yoruba" to their tag; anything
// unrecognized becomes the base language.
func NormalizeLang(lang string) string {
	v := strings.ToLower(strings.TrimSpace(lang))
	if v == "" {
		return BaseLang
	}
	if mapped, ok := langAliases[v]; ok {
		v = mapped
	}
	if _, ok := supportedLangs[v]; ok {
		return v
	}
	return BaseLang
}

// IsSupportedLang reports whether tag is one of the target languages.
func IsSupportedLang(tag string) bool {
	_, ok := supportedLangs[tag]
	return ok
}

// DetectLang is a cheap keyword heuristic, good enough to split the
// Nigerian languages from English. It never fails; unknown text is "en".
func DetectLang(text string) string {
	t := cleanText(text)
	if t == "" {
		return BaseLang
	}
	switch {
	case anyToken(t, yoTokens):
		return "yo"
	case anyToken(t, haTokens):
		return "ha"
	case anyToken(t, igTokens):
		return "ig"
	case anyToken(t, pcmTokens):
		return "pcm"
	default:
		return BaseLang
	}
}

func anyToken(t string, tokens []string) bool {
	for _, tok := range tokens {
		if containsKeyword(t, tok) {
			return true
		}
	}
	return false
}
