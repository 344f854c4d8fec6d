package verify

// Analyzer runs regression rules against a context.
type Analyzer struct {
	config *AnalyzerConfig
}

// AnalyzerConfig holds configuration for the analyzer.
type AnalyzerConfig struct {
	// DisabledRules contains rule IDs to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules
	SeverityOverrides map[string]Severity
}

// NewAnalyzerConfig creates a default configuration.
func NewAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]Severity),
	}
}

// NewAnalyzer creates an analyzer with optional configuration.
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	if config == nil {
		config = NewAnalyzerConfig()
	}
	return &Analyzer{config: config}
}

// Rules returns the registered rules that are not disabled.
func (a *Analyzer) Rules() []RuleDef {
	var rules []RuleDef
	for _, rule := range GetAll() {
		if !a.config.DisabledRules[rule.ID] {
			rules = append(rules, rule)
		}
	}
	return rules
}

// Analyze runs all enabled rules against the context.
func (a *Analyzer) Analyze(ctx *Context) []Diagnostic {
	if ctx == nil {
		return nil
	}

	var diagnostics []Diagnostic
	for _, rule := range a.Rules() {
		diags := rule.Check(ctx)
		for i := range diags {
			diags[i].RuleID = rule.ID
			if sev, ok := a.config.SeverityOverrides[rule.ID]; ok {
				diags[i].Severity = sev
			}
		}
		diagnostics = append(diagnostics, diags...)
	}
	return diagnostics
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
