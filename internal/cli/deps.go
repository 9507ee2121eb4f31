package cli

import (
	"fmt"
	"os"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/agentapi"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/architect"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/council"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/critic"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/forge"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/gate"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/gitops"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/harvest"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/heart"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/httpapi"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/llm"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/logging"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/sandbox"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/sanitize"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

// eventBufferSize bounds the daemon event channel. Watchers that fall
// behind lose events rather than blocking the architect.
const eventBufferSize = 64

// charmLogger is the charmbracelet/log surface the adapter wraps.
type charmLogger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
}

// componentLogger adapts a charmbracelet/log.Logger (which uses
// Info(msg interface{}, ...)) to the component packages' logging interfaces
// (which require Info(msg string, ...)).
type componentLogger struct {
	logger charmLogger
}

func newComponentLogger(name string) *componentLogger {
	return &componentLogger{logger: logging.New(name)}
}

func (l *componentLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *componentLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *componentLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

// runtime bundles every wired Trinity component. One runtime backs one
// command invocation; construction is cheap and touches no network.
type runtime struct {
	cfg     *config.Config
	cfgPath string

	mem     *memory.Store
	staging *staging.Store

	git   *gitops.Client
	chat  *llm.Client
	agent *agentapi.Client

	catalog *prompts.Catalog

	heart     *heart.Heart
	forge     *forge.Forge
	harvester *harvest.Harvester
	council   *council.Council

	events    chan architect.Event
	architect *architect.Architect
	api       *httpapi.Server
}

// loadConfig resolves the effective configuration, honoring --config.
func loadConfig() (*config.Config, string, error) {
	if flagConfig != "" {
		cfg, err := config.LoadExplicit(flagConfig)
		return cfg, flagConfig, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("resolving working directory: %w", err)
	}
	return config.Load(wd)
}

// buildRuntime wires the full component graph from the effective
// configuration. Commands that only need a slice of the graph still build
// all of it; nothing here dials out or starts goroutines.
func buildRuntime() (*runtime, error) {
	rt := &runtime{}

	// --- 1. Configuration ---
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt.cfg = cfg
	rt.cfgPath = cfgPath

	// --- 2. Prompt catalog ---
	catalog, err := prompts.New(cfg.Core.Language)
	if err != nil {
		return nil, err
	}
	rt.catalog = catalog

	// --- 3. Persistent stores ---
	mem, err := memory.New(cfg.Core.MemoryDir)
	if err != nil {
		return nil, err
	}
	rt.mem = mem

	// --- 4. External clients ---
	rt.git = gitops.New(cfg.Git, newComponentLogger("gitops"))
	rt.chat = llm.New(cfg.LLM, newComponentLogger("llm"))
	rt.agent = agentapi.New(cfg.Agent, newComponentLogger("agent"))

	stag, err := staging.New(cfg.Core.MemoryDir, rt.git, newComponentLogger("staging"))
	if err != nil {
		return nil, err
	}
	rt.staging = stag

	// --- 5. Reviewers ---
	judge := gate.New(rt.chat, catalog, cfg.Gate, newComponentLogger("gate"))
	planCritic := critic.New(rt.chat, catalog, newComponentLogger("critic"))

	// --- 6. Sandbox ---
	sand := sandbox.New(cfg.Core.ReposDir, cfg.Sandbox, cfg.Heart.Probation, newComponentLogger("sandbox"))

	// The watchdog and the forge scan with the same exemption set.
	scanner := sanitize.NewScanner(cfg.Sanitize.ExemptGlobs)

	// --- 7. Watchdog ---
	rt.heart = heart.New(heart.Deps{
		Agent:   rt.agent,
		Critic:  planCritic,
		Chat:    rt.chat,
		Sandbox: sand,
		Git:     rt.git,
		Memory:  mem,
		Catalog: catalog,
		Scanner: scanner,
		Logger:  newComponentLogger("heart"),
	}, cfg.Heart)

	// --- 8. Forge (missions claim their session so the watchdog skips it) ---
	rt.forge = forge.New(forge.Deps{
		Agent:   rt.agent,
		Judge:   judge,
		Critic:  planCritic,
		Stager:  stag,
		Git:     rt.git,
		Memory:  mem,
		Claims:  rt.heart,
		Scanner: scanner,
		Catalog: catalog,
		Logger:  newComponentLogger("forge"),
	}, cfg.Forge)

	// --- 9. Harvester ---
	rt.harvester = harvest.New(harvest.Deps{
		Agent:   rt.agent,
		Memory:  mem,
		Catalog: catalog,
		Logger:  newComponentLogger("harvest"),
	}, cfg.Harvest)

	// --- 10. Council ---
	rt.council = council.New(council.Deps{
		Chat:    rt.chat,
		Forge:   rt.forge,
		Staging: stag,
		Memory:  mem,
		Git:     rt.git,
		Catalog: catalog,
		Logger:  newComponentLogger("council"),
	}, cfg.Council, cfg.Core.ReposDir)

	// --- 11. Architect daemon ---
	rt.events = make(chan architect.Event, eventBufferSize)
	rt.architect = architect.New(architect.Deps{
		Council:   rt.council,
		Heart:     rt.heart,
		Harvester: rt.harvester,
		Events:    rt.events,
		Logger:    newComponentLogger("architect"),
	}, cfg.Council)

	// --- 12. Decision API ---
	rt.api = httpapi.New(httpapi.Deps{
		Staging:   stag,
		Memory:    mem,
		Architect: rt.architect,
		Logger:    newComponentLogger("http"),
	}, cfg.HTTP, cfg.Gate)

	return rt, nil
}

// close releases the runtime's pooled connections.
func (rt *runtime) close() {
	if rt.agent != nil {
		rt.agent.Close()
	}
}
