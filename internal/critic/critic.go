// Package critic reviews an agent's plan before Trinity approves it. Unlike
// the gate, the critic fails open: a judge that cannot be reached must not
// deadlock a mission, so errors come back as a neutral approval.
package critic

import (
	"context"
	"fmt"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/jsonutil"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/llm"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/mission"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/prompts"
)

// fallbackConfidence is the neutral confidence reported when the judge is
// unavailable.
const fallbackConfidence = 50

// Chatter is the completion surface the critic reviews with.
type Chatter interface {
	ChatFresh(ctx context.Context, system, user string) (string, llm.Usage, error)
}

// Logger is the minimal logging surface the critic needs.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Review is the critic's opinion of one plan.
type Review struct {
	Approved          bool   `json:"approved"`
	Confidence        int    `json:"confidence"`
	Critique          string `json:"critique,omitempty"`
	ImprovementPrompt string `json:"improvement_prompt,omitempty"`
}

// Critic reviews plans.
type Critic struct {
	chat    Chatter
	catalog *prompts.Catalog
	logger  Logger
}

// New creates a Critic. The logger may be nil.
func New(chat Chatter, catalog *prompts.Catalog, logger Logger) *Critic {
	return &Critic{chat: chat, catalog: catalog, logger: logger}
}

// Critique reviews the plan's steps against the mission. It never returns an
// error; anything unanswerable becomes a neutral approval.
func (c *Critic) Critique(ctx context.Context, m mission.Mission, steps []string) Review {
	data := prompts.CriticData{
		Title:       m.Title,
		Description: m.Description,
		Steps:       steps,
	}
	system, err := c.catalog.Render(prompts.CriticSystem, data)
	if err != nil {
		return c.fallback(m, err)
	}
	user, err := c.catalog.Render(prompts.CriticUser, data)
	if err != nil {
		return c.fallback(m, err)
	}

	content, _, err := c.chat.ChatFresh(ctx, system, user)
	if err != nil {
		return c.fallback(m, err)
	}

	var r Review
	if err := jsonutil.Into(content, &r); err != nil {
		return c.fallback(m, err)
	}

	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 100 {
		r.Confidence = 100
	}
	if c.logger != nil {
		c.logger.Debug("plan reviewed",
			"title", m.Title,
			"approved", r.Approved,
			"confidence", r.Confidence,
		)
	}
	return r
}

// fallback is the fail-open review: approve with neutral confidence so the
// pipeline keeps moving, and say why in the critique.
func (c *Critic) fallback(m mission.Mission, err error) Review {
	if c.logger != nil {
		c.logger.Warn("plan review unavailable", "title", m.Title, "error", err)
	}
	return Review{
		Approved:   true,
		Confidence: fallbackConfidence,
		Critique:   fmt.Sprintf("review unavailable (%v); approving to keep the mission moving", err),
	}
}
