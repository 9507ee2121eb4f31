// Package config defines the trinity.toml configuration surface: parsing,
// layered resolution (defaults, file, environment), and validation.
//
// Secrets never live in the TOML file. Each section that needs a credential
// names the environment variable that carries it; ApplyEnv resolves the
// variable into a non-serialized field at load time.
package config

import "time"

// Config is the top-level structure mapping to trinity.toml.
type Config struct {
	Core     CoreConfig     `toml:"core"`
	Agent    AgentConfig    `toml:"agent"`
	LLM      LLMConfig      `toml:"llm"`
	Forge    ForgeConfig    `toml:"forge"`
	Gate     GateConfig     `toml:"gate"`
	Heart    HeartConfig    `toml:"heart"`
	Council  CouncilConfig  `toml:"council"`
	Harvest  HarvestConfig  `toml:"harvest"`
	Sanitize SanitizeConfig `toml:"sanitize"`
	Sandbox  SandboxConfig  `toml:"sandbox"`
	Git      GitConfig      `toml:"git"`
	HTTP     HTTPConfig     `toml:"http"`
}

// CoreConfig maps to the [core] section.
type CoreConfig struct {
	// Language selects the prompt catalog: "en" or "fr".
	Language string `toml:"language"`
	// MemoryDir is the root of the persistent JSON memory. A leading "~" is
	// expanded to the user home directory at load time.
	MemoryDir string `toml:"memory_dir"`
	// ReposDir holds local clones used for probation runs and the council's
	// codebase scan.
	ReposDir string `toml:"repos_dir"`
}

// AgentConfig maps to the [agent] section: the remote coding-agent API.
type AgentConfig struct {
	BaseURL  string        `toml:"base_url"`
	TokenEnv string        `toml:"token_env"`
	Timeout  time.Duration `toml:"timeout"`

	// Token is resolved from TokenEnv by ApplyEnv; never read from TOML.
	Token string `toml:"-"`
}

// LLMConfig maps to the [llm] section: the OpenAI-compatible gateway used by
// the quality gate, the plan critic, and the council.
type LLMConfig struct {
	BaseURL  string        `toml:"base_url"`
	Model    string        `toml:"model"`
	KeyEnv   string        `toml:"key_env"`
	Timeout  time.Duration `toml:"timeout"`

	// APIKey is resolved from KeyEnv by ApplyEnv; never read from TOML.
	APIKey string `toml:"-"`
}

// ForgeConfig maps to the [forge] section: the per-mission refinement loop.
type ForgeConfig struct {
	MaxIterations       int           `toml:"max_iterations"`
	MaxBonusIterations  int           `toml:"max_bonus_iterations"`
	MaxPlanAttempts     int           `toml:"max_plan_attempts"`
	PlanPollAttempts    int           `toml:"plan_poll_attempts"`
	PlanPollInterval    time.Duration `toml:"plan_poll_interval"`
	PRWaitAttempts      int           `toml:"pr_wait_attempts"`
	PRWaitInterval      time.Duration `toml:"pr_wait_interval"`
	MaxUnchangedRetries int           `toml:"max_unchanged_retries"`
	UnchangedWait       time.Duration `toml:"unchanged_wait"`
	UnchangedPoll       time.Duration `toml:"unchanged_poll"`
	RefinePause         time.Duration `toml:"refine_pause"`
	RefinePauseCritical time.Duration `toml:"refine_pause_critical"`
	RepolessAttempts    int           `toml:"repoless_attempts"`
	RepolessInterval    time.Duration `toml:"repoless_interval"`
}

// GateConfig maps to the [gate] section: the quality gate verdict thresholds
// and the diff sampling budget.
type GateConfig struct {
	// PassThreshold is the minimum confidence for a PASS verdict. Scores
	// below TrashThreshold are TRASH; everything between is REFINE.
	PassThreshold  int `toml:"pass_threshold"`
	TrashThreshold int `toml:"trash_threshold"`
	// MaxChars caps the diff sample sent to the model.
	MaxChars int `toml:"max_chars"`
}

// HeartConfig maps to the [heart] section: the watchdog poller.
type HeartConfig struct {
	Tick            time.Duration `toml:"tick"`
	MaxRefinements  int           `toml:"max_refinements"`
	Probation       time.Duration `toml:"probation"`
	StderrNotifyMax int           `toml:"stderr_notify_max"`
}

// CouncilConfig maps to the [council] section: the nightly proposal pipeline.
type CouncilConfig struct {
	TargetSuccesses int `toml:"target_successes"`
	// AttemptFactor bounds dispatch at AttemptFactor * TargetSuccesses
	// mission attempts per run.
	AttemptFactor int `toml:"attempt_factor"`
	// Hour is the local hour (0-23) at which the nightly run fires.
	Hour int `toml:"hour"`
	// Repos are the repositories missions may target, e.g.
	// "owner/name". When empty, ReposDir is scanned for clones.
	Repos []string `toml:"repos"`
}

// HarvestConfig maps to the [harvest] section: the periodic suggestion sweep.
type HarvestConfig struct {
	Period  time.Duration `toml:"period"`
	MinWait time.Duration `toml:"min_wait"`
	Cap     int           `toml:"cap"`
	// Markers are the comment tags the agent is asked to sweep for.
	Markers []string `toml:"markers"`
	// Match are the substrings that identify a suggestion activity in the
	// agent's output. Localized deployments override these.
	Match []string `toml:"match"`
}

// SanitizeConfig maps to the [sanitize] section: the diff security scan.
type SanitizeConfig struct {
	// ExemptGlobs are doublestar patterns added to the built-in test-path
	// exemptions, e.g. "**/fixtures/**".
	ExemptGlobs []string `toml:"exempt_globs"`
}

// SandboxConfig maps to the [sandbox] section: local test execution.
type SandboxConfig struct {
	// Runner is the argv of the test command, executed inside the target
	// clone, e.g. ["bash", "-lc", "./run_tests.sh"].
	Runner      []string      `toml:"runner"`
	Timeout     time.Duration `toml:"timeout"`
	OutputLimit int           `toml:"output_limit"`
}

// GitConfig maps to the [git] section.
type GitConfig struct {
	Bin      string `toml:"bin"`
	GHBin    string `toml:"gh_bin"`
	TokenEnv string `toml:"token_env"`

	// Token is resolved from TokenEnv by ApplyEnv; never read from TOML.
	Token string `toml:"-"`
}

// HTTPConfig maps to the [http] section: the decision API.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}
