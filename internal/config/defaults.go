package config

import "time"

// NewDefaults returns a Config populated with every built-in default. Values
// a file or the environment does not override ship with these settings.
func NewDefaults() *Config {
	return &Config{
		Core: CoreConfig{
			Language:  "en",
			MemoryDir: "~/.trinity",
			ReposDir:  "~/repos",
		},
		Agent: AgentConfig{
			TokenEnv: "TRINITY_AGENT_TOKEN",
			Timeout:  60 * time.Second,
		},
		LLM: LLMConfig{
			Model:   "gpt-4o",
			KeyEnv:  "TRINITY_LLM_KEY",
			Timeout: 120 * time.Second,
		},
		Forge: ForgeConfig{
			MaxIterations:       5,
			MaxBonusIterations:  2,
			MaxPlanAttempts:     3,
			PlanPollAttempts:    30,
			PlanPollInterval:    5 * time.Second,
			PRWaitAttempts:      540,
			PRWaitInterval:      10 * time.Second,
			MaxUnchangedRetries: 5,
			UnchangedWait:       120 * time.Second,
			UnchangedPoll:       15 * time.Second,
			RefinePause:         60 * time.Second,
			RefinePauseCritical: 90 * time.Second,
			RepolessAttempts:    48,
			RepolessInterval:    10 * time.Second,
		},
		Gate: GateConfig{
			PassThreshold:  85,
			TrashThreshold: 50,
			MaxChars:       12000,
		},
		Heart: HeartConfig{
			Tick:            60 * time.Second,
			MaxRefinements:  3,
			Probation:       600 * time.Second,
			StderrNotifyMax: 200,
		},
		Council: CouncilConfig{
			TargetSuccesses: 3,
			AttemptFactor:   2,
			Hour:            3,
		},
		Harvest: HarvestConfig{
			Period:  24 * time.Hour,
			MinWait: 10 * time.Minute,
			Cap:     20,
			Markers: []string{"TODO", "FIXME", "HACK", "XXX"},
			Match:   []string{"SUGGESTIONS", "CRITIQUE"},
		},
		Sandbox: SandboxConfig{
			Timeout:     5 * time.Minute,
			OutputLimit: 1000,
		},
		Git: GitConfig{
			Bin:      "git",
			GHBin:    "gh",
			TokenEnv: "TRINITY_GIT_TOKEN",
		},
		HTTP: HTTPConfig{
			Addr: ":8315",
		},
	}
}
