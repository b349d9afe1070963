// Package canonical turns raw question text into a normalized string and a
// deterministic canonical key. It is pure and never fails: every input maps
// to a well-formed key.
package canonical

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Key fields are pipe-joined as intent|channel|state|month. A field that
// cannot be resolved from the text becomes the literal "any".
const AnyField = "any"

// AllAny is the key produced when no field resolves. Lookups on this key
// must fall back to normalized-text matching.
const AllAny = "any|any|any|any"

var months = map[string]string{
	"january": "jan", "jan": "jan",
	"february": "feb", "feb": "feb",
	"march": "mar", "mar": "mar",
	"april": "apr", "apr": "apr",
	"may":  "may",
	"june": "jun", "jun": "jun",
	"july": "jul", "jul": "jul",
	"august": "aug", "aug": "aug",
	"september": "sep", "sept": "sep", "sep": "sep",
	"october": "oct", "oct": "oct",
	"november": "nov", "nov": "nov",
	"december": "dec", "dec": "dec",
}

// Nigeria states, lowercased. "fct" resolves to "abuja".
var nigeriaStates = []string{
	"abia", "adamawa", "akwa ibom", "anambra", "bauchi", "bayelsa", "benue",
	"borno", "cross river", "delta", "ebonyi", "edo", "ekiti", "enugu",
	"gombe", "imo", "jigawa", "kaduna", "kano", "katsina", "kebbi", "kogi",
	"kwara", "lagos", "nasarawa", "niger", "ogun", "ondo", "osun", "oyo",
	"plateau", "rivers", "sokoto", "taraba", "yobe", "zamfara", "fct", "abuja",
}

type intentRule struct {
	name     string
	keywords []string
}

// Order matters: first matching group wins, so more specific intents sit
// ahead of the broad compliance bucket.
var intentRules = []intentRule{
	{"record_keeping", []string{
		"keep records", "record keeping", "bookkeeping", "documentation",
		"proof", "evidence", "receipts", "invoices", "reconcile",
		"bank statement", "track income", "track expenses",
	}},
	{"paye", []string{"paye", "salary tax", "employee tax"}},
	{"vat", []string{"vat", "value added tax"}},
	{"pit", []string{"pit", "personal income tax"}},
	{"business_reg", []string{"business registration", "cac", "register business"}},
	{"withholding_tax", []string{"withholding tax", "wht"}},
	{"compliance", []string{"file", "filing", "compliance", "penalty", "late payment", "audit"}},
}

type channelRule struct {
	name     string
	keywords []string
}

var channelRules = []channelRule{
	{"web_chat", []string{"web chat", "website chat", "live chat", "site chat"}},
	{"whatsapp", []string{"whatsapp", "wa"}},
	{"telegram", []string{"telegram", "tg"}},
	{"bank_transfer", []string{"bank transfer", "transfer"}},
	{"paypal", []string{"paypal"}},
	{"payoneer", []string{"payoneer"}},
	{"card", []string{"card", "debit card", "credit card"}},
}

var (
	refRe        = regexp.MustCompile(`(?i)\((?:ref|reference)\s*[^)]*\)`)
	amountRe     = regexp.MustCompile(`(?i)\b(?:₦|ngn|\$|usd|eur|gbp)?\s*\d[\d,]*(?:\.\d+)?\s*(?:k|m|b)?\b`)
	punctRe      = regexp.MustCompile(`[^a-z0-9\s<>]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	wordRe       = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// Result is the full canonicalization outcome for one question.
type Result struct {
	Normalized string
	Key        string
	Intent     string
	Channel    string
	State      string
	Month      string
}

// AllAnyKey reports whether no key field resolved, which switches lookups
// to normalized-text matching.
func (r Result) AllAnyKey() bool {
	return r.Key == AllAny
}

// Normalize lowercases, strips reference tags and punctuation, replaces
// money amounts with an <amount> placeholder and collapses whitespace.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(text))
	s = refRe.ReplaceAllString(s, " ")
	s = amountRe.ReplaceAllString(s, " <amount> ")
	s = punctRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// cleanText strips punctuation keeping unicode letters, for keyword scans.
func cleanText(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = wordRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DetectIntent scans the fixed keyword groups and returns the first match.
func DetectIntent(text string) string {
	t := cleanText(text)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if containsKeyword(t, kw) {
				return rule.name
			}
		}
	}
	return AnyField
}

// DetectChannel scans the channel keyword groups.
func DetectChannel(text string) string {
	t := cleanText(text)
	for _, rule := range channelRules {
		for _, kw := range rule.keywords {
			if containsKeyword(t, kw) {
				return rule.name
			}
		}
	}
	return AnyField
}

// ExtractState matches the Nigeria gazetteer, longest names first so
// "akwa ibom" wins over "imo" when both could match.
func ExtractState(text string) string {
	t := cleanText(text)
	sorted := make([]string, len(nigeriaStates))
	copy(sorted, nigeriaStates)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, st := range sorted {
		if containsKeyword(t, st) {
			if st == "fct" {
				return "abuja"
			}
			return st
		}
	}
	return AnyField
}

// ExtractMonth finds a month token and returns its three-letter form.
func ExtractMonth(text string) string {
	for _, tok := range strings.Fields(cleanText(text)) {
		if m, ok := months[tok]; ok {
			return m
		}
	}
	return AnyField
}

// Canonicalize resolves every key field independently and assembles the
// pipe-joined key.
func Canonicalize(question string) Result {
	r := Result{
		Normalized: Normalize(question),
		Intent:     DetectIntent(question),
		Channel:    DetectChannel(question),
		State:      ExtractState(question),
		Month:      ExtractMonth(question),
	}
	r.Key = fmt.Sprintf("%s|%s|%s|%s", r.Intent, r.Channel, r.State, r.Month)
	return r
}

// containsKeyword matches kw against t on word boundaries so "wa" does
// not fire inside "want".
func containsKeyword(t, kw string) bool {
	idx := 0
	for {
		i := strings.Index(t[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		leftOK := start == 0 || t[start-1] == ' '
		rightOK := end == len(t) || t[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
		if idx >= len(t) {
			return false
		}
	}
}
