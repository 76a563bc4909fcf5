package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
	"github.com/cptntrps/contract-v2-sub001/internal/util"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// Match is one raw pattern hit with its named capture groups
type Match struct {
	Raw    string
	Groups map[string]string
	Rule   rules.Pattern
}

// normalizer maps a raw match to its canonical value and adjusted confidence
type normalizer func(m Match) (normalized string, confidence float64)

var normalizers = map[model.EntityType]normalizer{
	model.EntityMoney:        normalizeMoney,
	model.EntityDate:         normalizeDate,
	model.EntityOrganization: normalizeOrganization,
	model.EntityObligation:   normalizeObligation,
}

func normalizerFor(t model.EntityType) normalizer {
	if n, ok := normalizers[t]; ok {
		return n
	}
	return func(m Match) (string, float64) {
		return collapse(m.Raw), m.Rule.Confidence
	}
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

var currencyWords = map[string]string{
	"dollars": "USD",
	"euros":   "EUR",
	"pounds":  "GBP",
}

var amountScales = map[string]float64{
	"thousand": 1e3,
	"million":  1e6,
	"billion":  1e9,
}

// normalizeMoney produces "USD 250000.00". An explicit symbol raises confidence;
// an unparsable amount or unknown currency halves it.
func normalizeMoney(m Match) (string, float64) {
	confidence := m.Rule.Confidence

	code := ""
	if sym := m.Groups["symbol"]; sym != "" {
		code = currencySymbols[sym]
		confidence += 0.05
	}
	if raw := m.Groups["code"]; raw != "" {
		if word, ok := currencyWords[strings.ToLower(raw)]; ok {
			code = word
		} else {
			code = strings.ToUpper(raw)
		}
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return collapse(m.Raw), confidence * 0.5
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(m.Groups["amount"], ",", ""), 64)
	if err != nil {
		return collapse(m.Raw), confidence * 0.5
	}
	if scale, ok := amountScales[strings.ToLower(m.Groups["scale"])]; ok {
		amount *= scale
	}

	return fmt.Sprintf("%s %.2f", unit.String(), amount), confidence
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// normalizeDate produces "YYYY-MM-DD". Two-digit years and day/month orders that
// could be read either way lower confidence; impossible dates halve it.
func normalizeDate(m Match) (string, float64) {
	confidence := m.Rule.Confidence

	year, errY := strconv.Atoi(m.Groups["year"])
	day, errD := strconv.Atoi(m.Groups["day"])
	if errY != nil || errD != nil {
		return collapse(m.Raw), confidence * 0.5
	}

	var month time.Month
	if named, ok := monthNames[strings.ToLower(m.Groups["month"])]; ok {
		month = named
	} else {
		n, err := strconv.Atoi(m.Groups["month"])
		if err != nil {
			return collapse(m.Raw), confidence * 0.5
		}
		month = time.Month(n)
		if n <= 12 && day <= 12 && n != day {
			confidence -= 0.1
		}
	}

	if len(m.Groups["year"]) == 2 {
		year += 2000
		if year >= 2070 {
			year -= 100
		}
		confidence -= 0.1
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return collapse(m.Raw), confidence * 0.5
	}
	return t.Format("2006-01-02"), confidence
}

var orgSuffixes = map[string]string{
	"inc": "Inc", "incorporated": "Inc",
	"corp": "Corp", "corporation": "Corp",
	"llc": "LLC", "l.l.c": "LLC",
	"ltd": "Ltd", "limited": "Ltd",
	"llp": "LLP", "gmbh": "GmbH", "plc": "PLC",
	"co": "Co", "company": "Co",
	"ag": "AG", "s.a": "SA", "n.v": "NV", "b.v": "BV",
}

// Capitalized words that start sentences or name contract parts rather than parties
var orgStopwords = map[string]bool{
	"the": true, "this": true, "that": true, "these": true, "each": true, "either": true,
	"neither": true, "any": true, "all": true, "no": true, "in": true, "if": true,
	"agreement": true, "section": true, "article": true, "schedule": true, "exhibit": true,
	"party": true, "parties": true, "effective": true, "date": true, "term": true,
	"termination": true, "payment": true, "confidential": true, "information": true,
	"governing": true, "law": true, "limitation": true, "liability": true,
	"intellectual": true, "property": true, "force": true, "majeure": true,
	"services": true, "state": true, "customer": true, "supplier": true, "vendor": true,
	"january": true, "february": true, "march": true, "april": true, "may": true,
	"june": true, "july": true, "august": true, "september": true, "october": true,
	"november": true, "december": true,
}

// normalizeOrganization title-cases the name and canonicalizes the legal suffix.
// Capitalized phrases without a suffix are guesses; phrases containing
// contract vocabulary are heavily discounted.
func normalizeOrganization(m Match) (string, float64) {
	confidence := m.Rule.Confidence
	title := cases.Title(language.English)

	if suffix := m.Groups["suffix"]; suffix != "" {
		words := strings.Fields(m.Groups["name"])
		for len(words) > 1 && orgStopwords[strings.ToLower(words[0])] {
			words = words[1:]
		}
		canonical := orgSuffixes[strings.ToLower(strings.TrimSuffix(suffix, "."))]
		if canonical == "" {
			canonical = suffix
		}
		return title.String(strings.Join(words, " ")) + " " + canonical, confidence
	}

	for _, w := range strings.Fields(m.Raw) {
		if orgStopwords[strings.ToLower(w)] {
			confidence *= 0.4
			break
		}
	}
	return title.String(collapse(m.Raw)), confidence
}

var modalCanonical = map[string]string{
	"shall":          "shall",
	"must":           "must",
	"agree to":       "agrees to",
	"agrees to":      "agrees to",
	"is required to": "is required to",
	"undertake to":   "undertakes to",
	"undertakes to":  "undertakes to",
}

// normalizeObligation produces a folded "modal [not] action" string.
// Explicit prohibitions score higher; very short actions score lower.
func normalizeObligation(m Match) (string, float64) {
	confidence := m.Rule.Confidence

	modal := strings.ToLower(collapse(m.Groups["modal"]))
	if modal == "" {
		modal = "will"
	}
	if canonical, ok := modalCanonical[modal]; ok {
		modal = canonical
	}

	parts := []string{modal}
	if strings.TrimSpace(m.Groups["neg"]) != "" {
		parts = append(parts, "not")
		confidence += 0.05
	}

	action := strings.TrimRight(collapse(m.Groups["action"]), " ,")
	if len(strings.Fields(action)) < 2 {
		confidence -= 0.15
	}
	parts = append(parts, action)

	return util.Fold(strings.Join(parts, " ")), confidence
}

// collapse trims and squeezes internal whitespace
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
