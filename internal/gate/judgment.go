package gate

import "encoding/json"

// Verdict classifies a scored diff.
type Verdict string

const (
	VerdictPass   Verdict = "PASS"
	VerdictRefine Verdict = "REFINE"
	VerdictTrash  Verdict = "TRASH"
)

// Judgment is the gate's structured opinion of one diff.
type Judgment struct {
	Score          int         `json:"score"`
	Verdict        Verdict     `json:"verdict"`
	Feedback       string      `json:"feedback,omitempty"`
	CriticalIssues []Issue     `json:"critical_issues,omitempty"`
	GapAnalysis    GapAnalysis `json:"gap_analysis,omitempty"`
}

// GapAnalysis itemizes what separates the diff from a 90 score.
type GapAnalysis struct {
	PointsTo90 int   `json:"points_to_90,omitempty"`
	Fixes      []Fix `json:"fixes,omitempty"`
}

// Fix is one concrete improvement with its estimated score value.
type Fix struct {
	Action string `json:"action"`
	Points int    `json:"points"`
}

// Issue is one flaw the judge flagged.
type Issue struct {
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description"`
	File        string `json:"file,omitempty"`
}

// UnmarshalJSON accepts both the object form and a bare string, since
// judges phrase issue lists either way.
func (i *Issue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		i.Description = s
		return nil
	}
	type plain Issue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Issue(p)
	return nil
}

// Classify maps a score to a verdict. Scores below trash are TRASH, scores
// below pass are REFINE, everything else is PASS.
func Classify(score, pass, trash int) Verdict {
	switch {
	case score < trash:
		return VerdictTrash
	case score < pass:
		return VerdictRefine
	default:
		return VerdictPass
	}
}

// clampScore bounds a raw model score to [0,100].
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
