package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pironjulien/trinity-hackathon-sub002/internal/council"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/memory"
	"github.com/pironjulien/trinity-hackathon-sub002/internal/staging"
)

// Decision actions accepted by POST /project/:id/decision.
const (
	actionMerge   = "MERGE"
	actionPending = "PENDING"
	actionReject  = "REJECT"
)

// decisionRequest is the body of POST /project/:id/decision.
type decisionRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// notificationRequest is the body of POST /notifications.
type notificationRequest struct {
	Kind      string            `json:"kind" binding:"required"`
	Title     string            `json:"title" binding:"required"`
	Message   string            `json:"message"`
	PRURL     string            `json:"pr_url"`
	SessionID string            `json:"session_id"`
	Meta      map[string]string `json:"meta"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// status reports the pending workload. "done" means the surface has work
// waiting on a human; "idle" means there is nothing to review yet.
func (s *Server) status(c *gin.Context) {
	sessions, err := s.mem.ActiveSessions()
	if err != nil {
		s.warn("reading active sessions", "error", err)
	}
	projects, err := s.staging.List()
	if err != nil {
		s.warn("listing staged projects", "error", err)
	}
	councilCount := 0
	if brief, err := s.mem.Brief(); err != nil {
		s.warn("reading morning brief", "error", err)
	} else if brief != nil {
		councilCount = len(brief.Candidates)
	}

	waiting := len(sessions)
	staged := len(projects)
	state := "idle"
	if waiting+staged > 0 {
		state = "done"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          state,
		"waiting_count":   waiting,
		"council_count":   councilCount,
		"staged_projects": staged,
		"total_pending":   waiting + staged,
		"pass_threshold":  s.gate.PassThreshold,
	})
}

func (s *Server) morningBrief(c *gin.Context) {
	brief, err := s.mem.Brief()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if brief == nil {
		c.JSON(http.StatusOK, gin.H{"candidates": []memory.BriefCandidate{}, "date": nil})
		return
	}
	c.JSON(http.StatusOK, brief)
}

func (s *Server) stagedProjects(c *gin.Context) {
	projects, err := s.staging.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

func (s *Server) project(c *gin.Context) {
	p, err := s.staging.Get(c.Param("id"))
	if errors.Is(err, staging.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) projectDiff(c *gin.Context) {
	diff, err := s.staging.Diff(c.Param("id"))
	if errors.Is(err, staging.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"diff": diff})
}

func (s *Server) projectFiles(c *gin.Context) {
	files, err := s.staging.Files(c.Param("id"))
	if errors.Is(err, staging.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if files == nil {
		files = []staging.FileStat{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) decide(c *gin.Context) {
	id := c.Param("id")

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reply(c, http.StatusBadRequest, false, err.Error())
		return
	}

	switch strings.ToUpper(req.Action) {
	case actionMerge:
		s.mergeProject(c, id)
	case actionReject:
		s.rejectProject(c, id, req.Reason)
	case actionPending:
		s.deferProject(c, id)
	default:
		reply(c, http.StatusBadRequest, false, fmt.Sprintf("unknown action %q", req.Action))
	}
}

func (s *Server) mergeProject(c *gin.Context, id string) {
	p, err := s.staging.Accept(c.Request.Context(), id)
	if errors.Is(err, staging.ErrNotFound) {
		reply(c, http.StatusNotFound, false, "project not found")
		return
	}
	if err != nil {
		reply(c, http.StatusInternalServerError, false, err.Error())
		return
	}
	rec := memory.MergeRecord{
		ID:         p.ID,
		Title:      p.Title,
		Repo:       p.Repo,
		PRURL:      p.PRURL,
		Confidence: p.Score,
		MergedAt:   p.DecidedAt,
	}
	if err := s.mem.AppendMerge(rec); err != nil {
		s.warn("recording merge", "id", p.ID, "error", err)
	}
	s.release(p.SessionID)
	s.info("project merged", "id", p.ID, "pr", p.PRURL)
	reply(c, http.StatusOK, true, "project merged")
}

func (s *Server) rejectProject(c *gin.Context, id, reason string) {
	p, err := s.staging.Reject(c.Request.Context(), id, reason)
	if errors.Is(err, staging.ErrNotFound) {
		reply(c, http.StatusNotFound, false, "project not found")
		return
	}
	if err != nil {
		reply(c, http.StatusInternalServerError, false, err.Error())
		return
	}
	s.release(p.SessionID)
	s.info("project rejected", "id", p.ID, "reason", reason)
	reply(c, http.StatusOK, true, "project rejected")
}

func (s *Server) deferProject(c *gin.Context, id string) {
	p, err := s.staging.SetPending(id)
	if errors.Is(err, staging.ErrNotFound) {
		reply(c, http.StatusNotFound, false, "project not found")
		return
	}
	if err != nil {
		reply(c, http.StatusInternalServerError, false, err.Error())
		return
	}
	// The session stays active so the watchdog keeps following the PR.
	s.info("project deferred", "id", p.ID)
	reply(c, http.StatusOK, true, "project deferred")
}

// release drops the watchdog's claim on a decided session.
func (s *Server) release(sessionID string) {
	if sessionID == "" {
		return
	}
	if err := s.mem.RemoveActiveSession(sessionID); err != nil {
		s.warn("releasing session", "session", sessionID, "error", err)
	}
}

func (s *Server) rejectedProjects(c *gin.Context) {
	projects, err := s.staging.Rejected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

func (s *Server) stats(c *gin.Context) {
	outcomes, err := s.mem.Outcomes()
	if err != nil {
		s.warn("reading outcomes", "error", err)
	}
	merged, err := s.mem.MergeHistory()
	if err != nil {
		s.warn("reading merge history", "error", err)
	}
	stagedList, err := s.staging.List()
	if err != nil {
		s.warn("listing staged projects", "error", err)
	}
	rejectedList, err := s.staging.Rejected()
	if err != nil {
		s.warn("listing rejected projects", "error", err)
	}

	byStatus := make(map[string]int)
	for _, o := range outcomes {
		byStatus[o.Status]++
	}
	c.JSON(http.StatusOK, gin.H{
		"outcomes":       byStatus,
		"total_outcomes": len(outcomes),
		"merged":         len(merged),
		"staged":         len(stagedList),
		"rejected":       len(rejectedList),
		"pass_threshold": s.gate.PassThreshold,
	})
}

func (s *Server) councilStats(c *gin.Context) {
	running, since := s.architect.CouncilStatus()
	body := gin.H{"running": running}
	if running {
		body["started_at"] = since.Format(time.RFC3339)
	}
	if exec, err := s.mem.LastExecution(); err != nil {
		s.warn("reading last execution", "error", err)
	} else if exec != nil {
		body["last_execution"] = exec
	}
	if brief, err := s.mem.Brief(); err != nil {
		s.warn("reading morning brief", "error", err)
	} else if brief != nil {
		body["brief"] = gin.H{"date": brief.Date, "status": brief.Status, "total": brief.Total}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) history(c *gin.Context) {
	records, err := s.mem.MergeHistory()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []memory.MergeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"merges": records, "count": len(records)})
}

func (s *Server) listNotifications(c *gin.Context) {
	list, err := s.mem.Notifications()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []memory.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list)})
}

func (s *Server) pushNotification(c *gin.Context) {
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := s.mem.Notify(memory.Notification{
		Kind:      req.Kind,
		Title:     req.Title,
		Message:   req.Message,
		PRURL:     req.PRURL,
		SessionID: req.SessionID,
		Meta:      req.Meta,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) startCouncil(c *gin.Context) {
	started, err := s.architect.TriggerCouncil()
	if errors.Is(err, council.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"started_at": started.Format(time.RFC3339),
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.info("council start requested")
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"started_at": started.Format(time.RFC3339),
	})
}

func (s *Server) councilStatus(c *gin.Context) {
	running, since := s.architect.CouncilStatus()
	body := gin.H{"running": running}
	if running {
		body["started_at"] = since.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

func reply(c *gin.Context, code int, ok bool, message string) {
	c.JSON(code, gin.H{"success": ok, "message": message})
}
