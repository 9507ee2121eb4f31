// Package prompts holds the localized prompt catalog for every model-facing
// text Trinity produces: quality-gate judgments, plan critiques, council
// ideation, cross-validation and deduplication, the heart's confidence
// review, harvest instructions, and the mission text sent to the coding
// agent.
//
// Templates live under templates/<lang>/<name>.tmpl and use [[ ]] delimiters
// so JSON examples inside the prompts survive untouched. A prompt missing
// from the selected language falls back to the English catalog.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed all:templates
var promptFS embed.FS

// fallbackLang is used when the selected catalog lacks a template.
const fallbackLang = "en"

// Prompt names understood by Catalog.Render.
const (
	GateSystem     = "gate_system"
	GateUser       = "gate_user"
	CriticSystem   = "critic_system"
	CriticUser     = "critic_user"
	IdeateSystem   = "ideate_system"
	IdeateUser     = "ideate_user"
	InsiderSystem  = "insider_system"
	InsiderUser    = "insider_user"
	ValidateSystem = "validate_system"
	ValidateUser   = "validate_user"
	DedupSystem    = "dedup_system"
	DedupUser      = "dedup_user"
	ReviewSystem   = "review_system"
	ReviewUser     = "review_user"
	Harvest        = "harvest"
	Mission        = "mission"
	MissionRefine  = "mission_refine"
)

// Supported reports whether a catalog exists for lang.
func Supported(lang string) bool {
	entries, err := promptFS.ReadDir("templates")
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() == lang {
			return true
		}
	}
	return false
}

// Catalog renders prompts for one language.
type Catalog struct {
	lang string
}

// New returns a Catalog for lang.
func New(lang string) (*Catalog, error) {
	if !Supported(lang) {
		return nil, fmt.Errorf("prompts: unsupported language %q", lang)
	}
	return &Catalog{lang: lang}, nil
}

// Language returns the catalog's language code.
func (c *Catalog) Language() string {
	return c.lang
}

// Render executes the named prompt template with data.
func (c *Catalog) Render(name string, data any) (string, error) {
	text, err := c.templateText(name)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(name).Delims("[[", "]]").Parse(text)
	if err != nil {
		return "", fmt.Errorf("prompts: parse %s/%s: %w", c.lang, name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompts: execute %s/%s: %w", c.lang, name, err)
	}
	return buf.String(), nil
}

// templateText loads the template body for name, falling back to English.
func (c *Catalog) templateText(name string) (string, error) {
	langs := []string{c.lang}
	if c.lang != fallbackLang {
		langs = append(langs, fallbackLang)
	}
	for _, lang := range langs {
		data, err := promptFS.ReadFile("templates/" + lang + "/" + name + ".tmpl")
		if err == nil {
			return string(data), nil
		}
	}
	return "", fmt.Errorf("prompts: unknown prompt %q", name)
}

// --- Template data ---

// GateData feeds the quality-gate prompts.
type GateData struct {
	Title          string
	Description    string
	Repo           string
	Diff           string
	TestOutput     string
	PassThreshold  int
	TrashThreshold int
}

// CriticData feeds the plan-critic prompts.
type CriticData struct {
	Title       string
	Description string
	Steps       []string
}

// IdeateData feeds the council ideation prompts.
type IdeateData struct {
	Count   int
	Repos   []string
	Avoid   []string
	Harvest []string
}

// InsiderData feeds the council's structural-scan prompts.
type InsiderData struct {
	Count int
	Repo  string
	Tree  string
	Notes []string
}

// Candidate is one proposal row in the cross-validation and dedup prompts.
type Candidate struct {
	Index       int
	Title       string
	Description string
	Source      string
}

// ValidateData feeds the council cross-validation prompts.
type ValidateData struct {
	Candidates []Candidate
}

// DedupData feeds the council deduplication prompts.
type DedupData struct {
	Candidates   []Candidate
	StagedTitles []string
}

// ReviewData feeds the heart's confidence-review prompts.
type ReviewData struct {
	Title string
	Repo  string
	PRURL string
	Diff  string
}

// HarvestData feeds the harvest instruction sent to the coding agent.
type HarvestData struct {
	Markers []string
}

// MissionData feeds the initial mission instruction.
type MissionData struct {
	Title       string
	Description string
	Repo        string
	Criteria    []string
}

// RefineIssue is one reviewer finding carried into a refinement prompt.
type RefineIssue struct {
	Severity    string
	Description string
	File        string
}

// RefineData feeds the refinement instruction sent after a REFINE verdict.
type RefineData struct {
	Title      string
	Iteration  int
	Score      int
	PointsTo90 int
	Summary    string
	Issues     []RefineIssue
	Fixes      []RefineFix
}

// RefineFix is one gap-analysis fix with its point estimate.
type RefineFix struct {
	Action string
	Points int
}
