// cmd/tools/policy-tool/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"lead-qualifier/internal/qualification"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	scoreCmd := flag.NewFlagSet("score", flag.ExitOnError)
	tagCmd := flag.NewFlagSet("tag", flag.ExitOnError)

	validatePath := validateCmd.String("path", "internal/qualification/policy.yaml", "Path to policy file")

	scorePath := scoreCmd.String("path", "", "Path to policy file (default: embedded policy)")
	text := scoreCmd.String("text", "", "Message to run the extractors on")

	tagPath := tagCmd.String("path", "", "Path to policy file (default: embedded policy)")
	score := tagCmd.Int("score", 0, "Score to tag")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		err = runValidate(os.Stdout, *validatePath)

	case "score":
		scoreCmd.Parse(os.Args[2:])
		if *text == "" {
			fmt.Println("Error: text is required for score.")
			scoreCmd.Usage()
			os.Exit(1)
		}
		err = withPolicy(*scorePath, func(p *qualification.Policy) error {
			return runScore(os.Stdout, p, *text)
		})

	case "tag":
		tagCmd.Parse(os.Args[2:])
		err = withPolicy(*tagPath, func(p *qualification.Policy) error {
			return runTag(os.Stdout, p, *score)
		})

	default:
		help()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func help() {
	fmt.Println("Usage: policy-tool <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  validate -path <file>          Check a policy file")
	fmt.Println("  score    -text <msg> [-path]   Show extractor outputs and score deltas for a message")
	fmt.Println("  tag      -score <n> [-path]    Show the relevance tag for a score")
}

func withPolicy(path string, fn func(*qualification.Policy) error) error {
	p, err := qualification.LoadPolicy(path)
	if err != nil {
		return err
	}
	return fn(p)
}

func runValidate(out io.Writer, path string) error {
	p, err := qualification.LoadPolicy(path)
	if err != nil {
		return err
	}
	if path == "" {
		path = "embedded"
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("policy %s is invalid: %w", path, err)
	}
	fmt.Fprintf(out, "Policy %s (version %s) is valid: %d keyword categories, %d budget bands, %d team size bands, %d timeline buckets\n",
		path, p.Version, len(p.KeywordCategories), len(p.BudgetBands), len(p.TeamSizeBands), len(p.TimelineBuckets))
	return nil
}

// ScoreReport is what the score command prints.
type ScoreReport struct {
	Email         string                     `json:"email,omitempty"`
	Company       string                     `json:"company,omitempty"`
	Budget        int                        `json:"budget,omitempty"`
	BudgetStatus  string                     `json:"budgetStatus"`
	BudgetDelta   int                        `json:"budgetDelta"`
	TeamSize      int                        `json:"teamSize,omitempty"`
	TeamSizeDelta int                        `json:"teamSizeDelta"`
	TimelineDelta int                        `json:"timelineDelta"`
	Keywords      []qualification.KeywordHit `json:"keywords,omitempty"`
	KeywordDelta  int                        `json:"keywordDelta"`
}

func buildScoreReport(p *qualification.Policy, text string) ScoreReport {
	var r ScoreReport
	r.Email, _ = qualification.ExtractEmail(text)
	r.Company, _ = qualification.ExtractCompany(text)

	amount, status := p.ParseBudget(text)
	r.BudgetStatus = status.String()
	switch status {
	case qualification.BudgetAmount:
		r.Budget = amount
		r.BudgetDelta = p.ScoreFromBudget(amount)
	case qualification.BudgetNone:
		r.BudgetDelta = p.NoBudgetDelta
	}

	if n, ok := qualification.ParseTeamSize(text); ok {
		r.TeamSize = n
		r.TeamSizeDelta = p.ScoreFromTeamSize(n)
	}

	r.TimelineDelta = p.ScoreTimeline(text)
	r.Keywords = p.KeywordHits(text)
	r.KeywordDelta = p.ScoreFromKeywords(text)
	return r
}

func runScore(out io.Writer, p *qualification.Policy, text string) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(buildScoreReport(p, text))
}

func runTag(out io.Writer, p *qualification.Policy, score int) error {
	clamped := p.Clamp(score)
	fmt.Fprintf(out, "%d -> %s\n", clamped, p.TagFromScore(clamped))
	return nil
}
