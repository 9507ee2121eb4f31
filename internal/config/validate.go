package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Severity classifies a validation finding.
type Severity string

const (
	// SeverityError marks a finding that makes the configuration unusable.
	SeverityError Severity = "error"
	// SeverityWarning marks a finding the daemon can run with.
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding.
type Issue struct {
	Severity Severity
	Field    string // dotted path, e.g. "gate.pass_threshold"
	Message  string
}

// String renders the issue as "field: message".
func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// Result collects all findings from a Validate pass.
type Result struct {
	Issues []Issue
}

// HasErrors reports whether any finding is fatal.
func (r *Result) HasErrors() bool {
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns the fatal findings.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			out = append(out, is)
		}
	}
	return out
}

// Warnings returns the non-fatal findings.
func (r *Result) Warnings() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Severity == SeverityWarning {
			out = append(out, is)
		}
	}
	return out
}

// supportedLanguages is the set of valid prompt catalogs.
var supportedLanguages = map[string]bool{
	"en": true,
	"fr": true,
}

// Validate checks the merged configuration. meta may be nil when no file was
// loaded; when present its undecoded keys are reported as warnings.
func Validate(cfg *Config, meta *toml.MetaData) *Result {
	r := &Result{}

	if cfg == nil {
		errf(r, "", "configuration is nil")
		return r
	}

	if !supportedLanguages[cfg.Core.Language] {
		errf(r, "core.language", "unsupported language %q; must be \"en\" or \"fr\"", cfg.Core.Language)
	}
	if cfg.Core.MemoryDir == "" {
		errf(r, "core.memory_dir", "must not be empty")
	}

	validateGate(r, &cfg.Gate)
	validateForge(r, &cfg.Forge)
	validateHeart(r, &cfg.Heart)
	validateCouncil(r, &cfg.Council)
	validateHarvest(r, &cfg.Harvest)
	validateSanitize(r, &cfg.Sanitize)

	if cfg.Agent.BaseURL == "" {
		warnf(r, "agent.base_url", "not set; forge and council runs will fail until configured")
	}
	if cfg.LLM.BaseURL == "" {
		warnf(r, "llm.base_url", "not set; gate and critic will fail until configured")
	}
	if len(cfg.Sandbox.Runner) == 0 {
		warnf(r, "sandbox.runner", "not set; probation test runs are disabled")
	}

	if meta != nil {
		for _, key := range meta.Undecoded() {
			warnf(r, strings.Join(key, "."), "unknown configuration key")
		}
	}

	return r
}

func validateGate(r *Result, g *GateConfig) {
	if g.PassThreshold < 1 || g.PassThreshold > 100 {
		errf(r, "gate.pass_threshold", "must be between 1 and 100, got %d", g.PassThreshold)
	}
	if g.TrashThreshold < 0 || g.TrashThreshold > 100 {
		errf(r, "gate.trash_threshold", "must be between 0 and 100, got %d", g.TrashThreshold)
	}
	if g.TrashThreshold >= g.PassThreshold {
		errf(r, "gate.trash_threshold", "must be below gate.pass_threshold (%d >= %d)", g.TrashThreshold, g.PassThreshold)
	}
	if g.MaxChars < 1000 {
		errf(r, "gate.max_chars", "must be at least 1000, got %d", g.MaxChars)
	}
}

func validateForge(r *Result, f *ForgeConfig) {
	positive := []struct {
		field string
		value int
	}{
		{"forge.max_iterations", f.MaxIterations},
		{"forge.max_plan_attempts", f.MaxPlanAttempts},
		{"forge.plan_poll_attempts", f.PlanPollAttempts},
		{"forge.pr_wait_attempts", f.PRWaitAttempts},
		{"forge.max_unchanged_retries", f.MaxUnchangedRetries},
		{"forge.repoless_attempts", f.RepolessAttempts},
	}
	for _, p := range positive {
		if p.value < 1 {
			errf(r, p.field, "must be at least 1, got %d", p.value)
		}
	}
	if f.MaxBonusIterations < 0 {
		errf(r, "forge.max_bonus_iterations", "must not be negative, got %d", f.MaxBonusIterations)
	}
}

func validateHeart(r *Result, h *HeartConfig) {
	if h.Tick <= 0 {
		errf(r, "heart.tick", "must be positive, got %s", h.Tick)
	}
	if h.MaxRefinements < 1 {
		errf(r, "heart.max_refinements", "must be at least 1, got %d", h.MaxRefinements)
	}
	if h.Probation <= 0 {
		errf(r, "heart.probation", "must be positive, got %s", h.Probation)
	}
}

func validateCouncil(r *Result, c *CouncilConfig) {
	if c.TargetSuccesses < 1 {
		errf(r, "council.target_successes", "must be at least 1, got %d", c.TargetSuccesses)
	}
	if c.AttemptFactor < 1 {
		errf(r, "council.attempt_factor", "must be at least 1, got %d", c.AttemptFactor)
	}
	if c.Hour < 0 || c.Hour > 23 {
		errf(r, "council.hour", "must be between 0 and 23, got %d", c.Hour)
	}
}

func validateHarvest(r *Result, h *HarvestConfig) {
	if h.Period <= 0 {
		errf(r, "harvest.period", "must be positive, got %s", h.Period)
	}
	if h.Cap < 1 {
		errf(r, "harvest.cap", "must be at least 1, got %d", h.Cap)
	}
	for i, m := range h.Markers {
		if strings.TrimSpace(m) == "" {
			errf(r, fmt.Sprintf("harvest.markers[%d]", i), "must not be blank")
		}
	}
	for i, m := range h.Match {
		if strings.TrimSpace(m) == "" {
			errf(r, fmt.Sprintf("harvest.match[%d]", i), "must not be blank")
		}
	}
}

func validateSanitize(r *Result, s *SanitizeConfig) {
	for i, g := range s.ExemptGlobs {
		if strings.TrimSpace(g) == "" {
			errf(r, fmt.Sprintf("sanitize.exempt_globs[%d]", i), "must not be blank")
		}
	}
}

func errf(r *Result, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: SeverityError,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

func warnf(r *Result, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}
