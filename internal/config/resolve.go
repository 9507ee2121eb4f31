package config

import "time"

// EnvFunc looks up environment variables. Production code passes
// os.LookupEnv; tests inject a map-backed stub.
type EnvFunc func(key string) (string, bool)

// Merge layers a file config over the defaults. Zero values in the file
// mean "not set" and keep the default; slices override only when non-empty.
// Neither input is modified.
func Merge(defaults, file *Config) *Config {
	if defaults == nil {
		defaults = &Config{}
	}
	merged := *defaults
	merged.Harvest.Markers = append([]string(nil), defaults.Harvest.Markers...)
	merged.Harvest.Match = append([]string(nil), defaults.Harvest.Match...)
	merged.Council.Repos = append([]string(nil), defaults.Council.Repos...)
	merged.Sandbox.Runner = append([]string(nil), defaults.Sandbox.Runner...)

	if file == nil {
		return &merged
	}

	mergeString(&merged.Core.Language, file.Core.Language)
	mergeString(&merged.Core.MemoryDir, file.Core.MemoryDir)
	mergeString(&merged.Core.ReposDir, file.Core.ReposDir)

	mergeString(&merged.Agent.BaseURL, file.Agent.BaseURL)
	mergeString(&merged.Agent.TokenEnv, file.Agent.TokenEnv)
	mergeDuration(&merged.Agent.Timeout, file.Agent.Timeout)

	mergeString(&merged.LLM.BaseURL, file.LLM.BaseURL)
	mergeString(&merged.LLM.Model, file.LLM.Model)
	mergeString(&merged.LLM.KeyEnv, file.LLM.KeyEnv)
	mergeDuration(&merged.LLM.Timeout, file.LLM.Timeout)

	mergeInt(&merged.Forge.MaxIterations, file.Forge.MaxIterations)
	mergeInt(&merged.Forge.MaxBonusIterations, file.Forge.MaxBonusIterations)
	mergeInt(&merged.Forge.MaxPlanAttempts, file.Forge.MaxPlanAttempts)
	mergeInt(&merged.Forge.PlanPollAttempts, file.Forge.PlanPollAttempts)
	mergeDuration(&merged.Forge.PlanPollInterval, file.Forge.PlanPollInterval)
	mergeInt(&merged.Forge.PRWaitAttempts, file.Forge.PRWaitAttempts)
	mergeDuration(&merged.Forge.PRWaitInterval, file.Forge.PRWaitInterval)
	mergeInt(&merged.Forge.MaxUnchangedRetries, file.Forge.MaxUnchangedRetries)
	mergeDuration(&merged.Forge.UnchangedWait, file.Forge.UnchangedWait)
	mergeDuration(&merged.Forge.UnchangedPoll, file.Forge.UnchangedPoll)
	mergeDuration(&merged.Forge.RefinePause, file.Forge.RefinePause)
	mergeDuration(&merged.Forge.RefinePauseCritical, file.Forge.RefinePauseCritical)
	mergeInt(&merged.Forge.RepolessAttempts, file.Forge.RepolessAttempts)
	mergeDuration(&merged.Forge.RepolessInterval, file.Forge.RepolessInterval)

	mergeInt(&merged.Gate.PassThreshold, file.Gate.PassThreshold)
	mergeInt(&merged.Gate.TrashThreshold, file.Gate.TrashThreshold)
	mergeInt(&merged.Gate.MaxChars, file.Gate.MaxChars)

	mergeDuration(&merged.Heart.Tick, file.Heart.Tick)
	mergeInt(&merged.Heart.MaxRefinements, file.Heart.MaxRefinements)
	mergeDuration(&merged.Heart.Probation, file.Heart.Probation)
	mergeInt(&merged.Heart.StderrNotifyMax, file.Heart.StderrNotifyMax)

	mergeInt(&merged.Council.TargetSuccesses, file.Council.TargetSuccesses)
	mergeInt(&merged.Council.AttemptFactor, file.Council.AttemptFactor)
	if file.Council.Hour != 0 {
		merged.Council.Hour = file.Council.Hour
	}
	mergeSlice(&merged.Council.Repos, file.Council.Repos)

	mergeDuration(&merged.Harvest.Period, file.Harvest.Period)
	mergeDuration(&merged.Harvest.MinWait, file.Harvest.MinWait)
	mergeInt(&merged.Harvest.Cap, file.Harvest.Cap)
	mergeSlice(&merged.Harvest.Markers, file.Harvest.Markers)
	mergeSlice(&merged.Harvest.Match, file.Harvest.Match)

	mergeSlice(&merged.Sanitize.ExemptGlobs, file.Sanitize.ExemptGlobs)

	mergeSlice(&merged.Sandbox.Runner, file.Sandbox.Runner)
	mergeDuration(&merged.Sandbox.Timeout, file.Sandbox.Timeout)
	mergeInt(&merged.Sandbox.OutputLimit, file.Sandbox.OutputLimit)

	mergeString(&merged.Git.Bin, file.Git.Bin)
	mergeString(&merged.Git.GHBin, file.Git.GHBin)
	mergeString(&merged.Git.TokenEnv, file.Git.TokenEnv)

	mergeString(&merged.HTTP.Addr, file.HTTP.Addr)

	return &merged
}

// ApplyEnv overlays TRINITY_* environment variables and resolves the secret
// fields from their configured variable names.
//
// Recognized variables:
//
//	TRINITY_LANG          -> core.language
//	TRINITY_MEMORY_DIR    -> core.memory_dir
//	TRINITY_REPOS_DIR     -> core.repos_dir
//	TRINITY_AGENT_URL     -> agent.base_url
//	TRINITY_LLM_URL       -> llm.base_url
//	TRINITY_LLM_MODEL     -> llm.model
//	TRINITY_HTTP_ADDR     -> http.addr
//
// plus the secret variables named by agent.token_env, llm.key_env, and
// git.token_env (TRINITY_AGENT_TOKEN, TRINITY_LLM_KEY, TRINITY_GIT_TOKEN by
// default).
func ApplyEnv(cfg *Config, envFn EnvFunc) {
	if envFn == nil {
		return
	}

	if v, ok := envFn("TRINITY_LANG"); ok {
		cfg.Core.Language = v
	}
	if v, ok := envFn("TRINITY_MEMORY_DIR"); ok {
		cfg.Core.MemoryDir = v
	}
	if v, ok := envFn("TRINITY_REPOS_DIR"); ok {
		cfg.Core.ReposDir = v
	}
	if v, ok := envFn("TRINITY_AGENT_URL"); ok {
		cfg.Agent.BaseURL = v
	}
	if v, ok := envFn("TRINITY_LLM_URL"); ok {
		cfg.LLM.BaseURL = v
	}
	if v, ok := envFn("TRINITY_LLM_MODEL"); ok {
		cfg.LLM.Model = v
	}
	if v, ok := envFn("TRINITY_HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}

	if cfg.Agent.TokenEnv != "" {
		if v, ok := envFn(cfg.Agent.TokenEnv); ok {
			cfg.Agent.Token = v
		}
	}
	if cfg.LLM.KeyEnv != "" {
		if v, ok := envFn(cfg.LLM.KeyEnv); ok {
			cfg.LLM.APIKey = v
		}
	}
	if cfg.Git.TokenEnv != "" {
		if v, ok := envFn(cfg.Git.TokenEnv); ok {
			cfg.Git.Token = v
		}
	}
}

// --- Merge helpers ---

func mergeString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func mergeInt(target *int, value int) {
	if value != 0 {
		*target = value
	}
}

func mergeDuration(target *time.Duration, value time.Duration) {
	if value != 0 {
		*target = value
	}
}

func mergeSlice(target *[]string, value []string) {
	if len(value) > 0 {
		*target = append([]string(nil), value...)
	}
}
