// internal/qualification/extract.go
package qualification

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	companyPattern = regexp.MustCompile(`(?:at|for|with|from)\s+([A-Z][A-Za-z0-9\s&]+)(?:\.|,|\s|$)`)
	budgetPattern  = regexp.MustCompile(`(\d+)(k)?`)
	currencyChars  = strings.NewReplacer(",", "", "$", "", "₦", "", "€", "", "£", "")
	nonDigit       = regexp.MustCompile(`\D`)
)

// ExtractEmail returns the first email-looking substring of text.
func ExtractEmail(text string) (string, bool) {
	m := emailPattern.FindString(text)
	return m, m != ""
}

// ExtractCompany returns the capitalised words following at/for/with/from.
func ExtractCompany(text string) (string, bool) {
	m := companyPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	return name, name != ""
}

// BudgetStatus distinguishes a parsed figure from an explicit "no budget".
type BudgetStatus int

const (
	BudgetUnknown BudgetStatus = iota
	BudgetAmount
	BudgetNone
)

func (s BudgetStatus) String() string {
	switch s {
	case BudgetAmount:
		return "amount"
	case BudgetNone:
		return "no_budget"
	default:
		return "unknown"
	}
}

// ParseBudget reads a budget figure such as "$25,000" or "40k". A no-budget
// phrase wins over any digits in the same message.
func (p *Policy) ParseBudget(text string) (int, BudgetStatus) {
	lowered := strings.ToLower(text)
	for _, phrase := range p.NoBudgetPhrases {
		if strings.Contains(lowered, phrase) {
			return 0, BudgetNone
		}
	}

	cleaned := currencyChars.Replace(lowered)
	m := budgetPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, BudgetUnknown
	}
	amount := atoiSaturating(m[1])
	if m[2] == "k" {
		if amount > math.MaxInt/1000 {
			amount = math.MaxInt
		} else {
			amount *= 1000
		}
	}
	return amount, BudgetAmount
}

// ParseTeamSize strips every non-digit and parses what remains.
func ParseTeamSize(text string) (int, bool) {
	digits := nonDigit.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	return atoiSaturating(digits), true
}

// ScoreTimeline returns the delta of the first timeline bucket that matches.
func (p *Policy) ScoreTimeline(text string) int {
	lower := strings.ToLower(text)
	for _, b := range p.TimelineBuckets {
		if b.re.MatchString(lower) {
			return b.Delta
		}
	}
	return 0
}

func atoiSaturating(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return math.MaxInt
		}
		return 0
	}
	return n
}
