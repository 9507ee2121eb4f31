// Package gate scores a session's diff against its mission and classifies
// it PASS, REFINE or TRASH. The gate fails closed: anything it cannot score
// is TRASH.
package gate

import (
	"context"
	"strings"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/jsonutil"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/llm"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
)

// Chatter is the uncached completion surface the gate scores with. Each
// judgment must be fresh; a cached one would hide regressions between
// refinement rounds.
type Chatter interface {
	ChatFresh(ctx context.Context, system, user string) (string, llm.Usage, error)
}

// Logger is the minimal logging surface the gate needs.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Gate evaluates diffs.
type Gate struct {
	chat    Chatter
	catalog *prompts.Catalog
	cfg     config.GateConfig
	logger  Logger
}

// New creates a Gate. The logger may be nil.
func New(chat Chatter, catalog *prompts.Catalog, cfg config.GateConfig, logger Logger) *Gate {
	return &Gate{chat: chat, catalog: catalog, cfg: cfg, logger: logger}
}

// Evaluate scores the diff a mission produced. testOutput may be empty. The
// returned judgment always carries a verdict consistent with its score and
// the configured thresholds.
func (g *Gate) Evaluate(ctx context.Context, m mission.Mission, diff, testOutput string) Judgment {
	if strings.TrimSpace(diff) == "" {
		return Judgment{Score: 0, Verdict: VerdictTrash, Feedback: "empty diff"}
	}

	sample := BalancedSample(diff, g.cfg.MaxChars)
	if g.logger != nil && len(sample) < len(diff) {
		g.logger.Debug("diff sampled", "title", m.Title, "full_bytes", len(diff), "sample_bytes", len(sample))
	}

	data := prompts.GateData{
		Title:          m.Title,
		Description:    m.Description,
		Repo:           m.Repo,
		Diff:           sample,
		TestOutput:     testOutput,
		PassThreshold:  g.cfg.PassThreshold,
		TrashThreshold: g.cfg.TrashThreshold,
	}
	system, err := g.catalog.Render(prompts.GateSystem, data)
	if err != nil {
		return g.trash(m, err)
	}
	user, err := g.catalog.Render(prompts.GateUser, data)
	if err != nil {
		return g.trash(m, err)
	}

	content, _, err := g.chat.ChatFresh(ctx, system, user)
	if err != nil {
		return g.trash(m, err)
	}

	var j Judgment
	if err := jsonutil.Into(content, &j); err != nil {
		return g.trash(m, err)
	}
	return g.finish(m, j)
}

// finish normalizes a parsed judgment: clamp the score, derive the verdict
// from the thresholds and fill a missing gap estimate.
func (g *Gate) finish(m mission.Mission, j Judgment) Judgment {
	j.Score = clampScore(j.Score)
	j.Verdict = Classify(j.Score, g.cfg.PassThreshold, g.cfg.TrashThreshold)
	if j.GapAnalysis.PointsTo90 == 0 && j.Score < 90 {
		j.GapAnalysis.PointsTo90 = 90 - j.Score
	}
	if g.logger != nil {
		g.logger.Debug("diff judged",
			"title", m.Title,
			"score", j.Score,
			"verdict", j.Verdict,
			"critical_issues", len(j.CriticalIssues),
		)
	}
	return j
}

// trash is the fail-closed judgment for anything the gate could not score.
func (g *Gate) trash(m mission.Mission, err error) Judgment {
	if g.logger != nil {
		g.logger.Warn("evaluation failed", "title", m.Title, "error", err)
	}
	return Judgment{Score: 0, Verdict: VerdictTrash, Feedback: err.Error()}
}
