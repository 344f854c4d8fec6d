package verify

import "sort"

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// HealthCheck is the outcome of one rule.
type HealthCheck struct {
	RuleID      string   `json:"rule_id"`
	Name        string   `json:"name"`
	Group       string   `json:"group"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	IssueCount  int      `json:"issue_count"`
	Details     []string `json:"details,omitempty"`
}

// Passed reports whether the rule found nothing.
func (h HealthCheck) Passed() bool { return h.Status == StatusPass }

// HealthChecks builds one check per rule from the diagnostics, sorted by
// group then rule ID.
func HealthChecks(rules []RuleDef, diags []Diagnostic) []HealthCheck {
	byRule := make(map[string][]Diagnostic)
	for _, d := range diags {
		byRule[d.RuleID] = append(byRule[d.RuleID], d)
	}

	checks := make([]HealthCheck, 0, len(rules))
	for _, rule := range rules {
		ruleDiags := byRule[rule.ID]
		status := StatusPass
		for _, d := range ruleDiags {
			if d.Severity == SeverityError {
				status = StatusError
				break
			}
			status = StatusWarn
		}

		details := make([]string, 0, len(ruleDiags))
		for _, d := range ruleDiags {
			details = append(details, d.Message)
		}
		checks = append(checks, HealthCheck{
			RuleID:      rule.ID,
			Name:        rule.Name,
			Group:       rule.Group,
			Description: rule.Description,
			Status:      status,
			IssueCount:  len(ruleDiags),
			Details:     details,
		})
	}

	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Group != checks[j].Group {
			return checks[i].Group < checks[j].Group
		}
		return checks[i].RuleID < checks[j].RuleID
	})
	return checks
}

// Score computes a 0-100 score. Each failed rule costs an equal share;
// warnings cost half of it.
func Score(checks []HealthCheck) int {
	if len(checks) == 0 {
		return 100
	}
	share := 100.0 / float64(len(checks))
	score := 100.0
	for _, c := range checks {
		switch c.Status {
		case StatusError:
			score -= share
		case StatusWarn:
			score -= share / 2
		}
	}
	if score < 0 {
		score = 0
	}
	return int(score + 0.5)
}

// Recommendations returns the fix advice of every failing rule, at most five.
func Recommendations(checks []HealthCheck) []string {
	var recs []string
	seen := make(map[string]bool)
	for _, c := range checks {
		if c.Passed() {
			continue
		}
		rule, ok := GetByID(c.RuleID)
		if !ok || rule.Recommendation == "" || seen[rule.Recommendation] {
			continue
		}
		seen[rule.Recommendation] = true
		recs = append(recs, rule.Recommendation)
	}
	if len(recs) > 5 {
		recs = recs[:5]
	}
	return recs
}
