package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cptntrps/contract-v2-sub001/internal/model"
	"github.com/cptntrps/contract-v2-sub001/internal/rules"
)

// riskCheck reports whether a rule fires for a clause text
type riskCheck func(rule rules.RiskRule, text string) bool

var riskChecks = map[string]riskCheck{
	model.RuleAbsent: func(rule rules.RiskRule, text string) bool {
		return !rule.Regexp.MatchString(text)
	},
	model.RulePresent: func(rule rules.RiskRule, text string) bool {
		return rule.Regexp.MatchString(text)
	},
	model.RuleMaxDays: func(rule rules.RiskRule, text string) bool {
		for _, days := range DayPeriods(text) {
			if days < rule.Threshold {
				return true
			}
		}
		return false
	},
}

// assessRisk applies every rule of the category; the highest fired level wins
func assessRisk(cat rules.Category, text string) (model.RiskLevel, []string) {
	level := model.RiskLow
	var reasons []string
	for _, rule := range cat.RiskRules {
		check, ok := riskChecks[rule.Kind]
		if !ok || !check(rule, text) {
			continue
		}
		level = model.MaxRisk(level, rule.Level)
		reasons = append(reasons, rule.Reason)
	}
	return level, reasons
}

// "30 days", "thirty (30) days", "ten business days"
var dayPeriod = regexp.MustCompile(`(?i)\b(?:(\d+)|([a-z]+(?:-[a-z]+)?))\s*(?:\((\d+)\)\s*)?(?:business\s+|calendar\s+|working\s+)?days?\b`)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
	"eight": 8, "nine": 9, "ten": 10, "fourteen": 14, "fifteen": 15, "twenty": 20,
	"twenty-one": 21, "thirty": 30, "forty-five": 45, "sixty": 60, "ninety": 90,
}

// DayPeriods returns every "N days" period mentioned in text
func DayPeriods(text string) []int {
	var periods []int
	for _, m := range dayPeriod.FindAllStringSubmatch(text, -1) {
		switch {
		case m[3] != "":
			if n, err := strconv.Atoi(m[3]); err == nil {
				periods = append(periods, n)
			}
		case m[1] != "":
			if n, err := strconv.Atoi(m[1]); err == nil {
				periods = append(periods, n)
			}
		default:
			if n, ok := numberWords[strings.ToLower(m[2])]; ok {
				periods = append(periods, n)
			}
		}
	}
	return periods
}
