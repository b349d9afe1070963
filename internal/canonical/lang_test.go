package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLang(t *testing.T) {
	cases := map[string]string{
		"":                "en",
		"EN":              "en",
		"English":         "en",
		"yoruba":          "yo",
		"Igbo":            "ig",
		"hausa":           "ha",
		"pidgin":          "pcm",
		"naija":           "pcm",
		"nigerian pidgin": "pcm",
		"french":          "en",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLang(in), "input %q", in)
	}
}

func TestDetectLang(t *testing.T) {
	assert.Equal(t, "pcm", DetectLang("wetin be vat"))
	assert.Equal(t, "ha", DetectLang("me yasa haraji yake da yawa"))
	assert.Equal(t, "ig", DetectLang("kedu ka esi akwu ụtụ"))
	assert.Equal(t, "en", DetectLang("what is withholding tax"))
	assert.Equal(t, "en", DetectLang(""))
}
