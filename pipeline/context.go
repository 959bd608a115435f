package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/scribemark/feedback/cost"
	"github.com/scribemark/feedback/llm"
)

// Stage is a step of a generation request.
type Stage string

const (
	StageBuildingPrompt  Stage = "building_prompt"
	StageRequesting      Stage = "requesting"
	StageRetryingForJSON Stage = "retrying_for_json"
	StageCostTracking    Stage = "cost_tracking"
	StageNormalizing     Stage = "normalizing"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// Context carries the state of one generation request through the pipeline.
// It is owned by a single goroutine.
type Context struct {
	ID       string
	UseCase  llm.UseCase
	Subject  cost.Trackable
	UserID   string
	Prompt   string
	Provider string
	Response *llm.Response
	Usage    *cost.UsageRecord
	Result   any

	State     Stage
	Attempts  int
	Err       error
	Timings   map[Stage]time.Duration
	StartedAt time.Time
	EndedAt   time.Time

	now        func() time.Time
	stageStart time.Time
}

func newContext(useCase llm.UseCase, req GenerationRequest, now func() time.Time) *Context {
	if now == nil {
		now = time.Now
	}
	start := now()
	return &Context{
		ID:         uuid.NewString(),
		UseCase:    useCase,
		Subject:    req.Subject,
		UserID:     req.UserID,
		State:      StageBuildingPrompt,
		Timings:    make(map[Stage]time.Duration),
		StartedAt:  start,
		now:        now,
		stageStart: start,
	}
}

// enter closes the timing of the current stage and moves to next.
func (c *Context) enter(next Stage) {
	t := c.now()
	c.Timings[c.State] += t.Sub(c.stageStart)
	c.State = next
	c.stageStart = t
	if next == StageDone || next == StageFailed {
		c.EndedAt = t
	}
}

func (c *Context) fail(err error) error {
	c.Err = err
	c.enter(StageFailed)
	return err
}

// Duration is the elapsed time from start to done/failed, or until now while running.
func (c *Context) Duration() time.Duration {
	if c.EndedAt.IsZero() {
		return c.now().Sub(c.StartedAt)
	}
	return c.EndedAt.Sub(c.StartedAt)
}
