// Package flow implements the client-side controller for one skills-ranking
// phase: the scripted reveal sequence, the single guarded server transition,
// and the replay/skip handling around it. One controller instance hosts one
// phase for one activation; the server snapshot stays the only source of
// truth.
package flow

import (
	"context"
	"sync"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/skillsranking"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
)

// RankingAPI is the remote surface the controller drives. Implemented by the
// REST client in production and by fakes in tests.
type RankingAPI interface {
	GetConfig(ctx context.Context) (*Config, error)
	UpdateState(ctx context.Context, sessionID int, next skillsranking.Phase) (*skillsranking.State, error)
}

// Config is the remote flow configuration: where the job platform lives and
// how long each simulated typing indicator runs.
type Config struct {
	JobPlatformURL  string
	TypingDurations [3]time.Duration
	MinThinkingTime time.Duration
}

// SessionSource yields the active session. The head of the user's session
// list is authoritative; a controller without an active session must not
// attempt any transition.
type SessionSource interface {
	GetActiveSessionID() (int, bool)
}

// View receives presentation callbacks as the reveal script plays out.
// ShowSubmitError reverts the submitting presentation after a failed
// transition: typing hidden, a non-blocking notice, continue re-enabled.
// Callbacks stop the moment the controller closes.
type View interface {
	ShowTyping(step int)
	RevealMessage(step int)
	EnableContinue()
	ShowSubmitError()
	ShowTerminal()
}

// Controller hosts a single phase of the experiment flow.
type Controller struct {
	phase    skillsranking.Phase
	state    *skillsranking.State
	api      RankingAPI
	sessions SessionSource
	view     View
	config   *Config
	onFinish func(*skillsranking.State)
	logger   *logging.ChanneledLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	submitted   bool
	closed      bool
	activatedAt time.Time
	timers      []*time.Timer

	now func() time.Time
}

// Options wires a controller activation.
type Options struct {
	Phase    skillsranking.Phase
	State    *skillsranking.State
	API      RankingAPI
	Sessions SessionSource
	View     View
	Config   *Config
	OnFinish func(*skillsranking.State)
	Logger   *logging.ChanneledLogger
}

// NewController creates a controller for one phase activation.
func NewController(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		phase:    opts.Phase,
		state:    opts.State.Clone(),
		api:      opts.API,
		sessions: opts.Sessions,
		view:     opts.View,
		config:   opts.Config,
		onFinish: opts.OnFinish,
		logger:   opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Activate starts the controller. A phase that is no longer the state's
// current phase is a replay: terminal content renders immediately, no timers
// run, and no transition will ever be submitted. A phase the group is
// configured to auto-advance performs its single transition without waiting
// for user input. Otherwise the scripted reveal sequence begins.
func (c *Controller) Activate() {
	c.mu.Lock()
	c.activatedAt = c.now()
	c.mu.Unlock()

	if c.state.CurrentPhase() != c.phase {
		c.logger.Flow().Debug("Replay detected, rendering terminal content",
			"phase", c.phase, "currentPhase", c.state.CurrentPhase(), "sessionId", c.state.SessionID)
		c.mu.Lock()
		c.submitted = true // replay never submits
		c.mu.Unlock()
		c.view.ShowTerminal()
		return
	}

	transition, err := skillsranking.NextTransition(c.state.ExperimentGroup, c.phase)
	if err != nil {
		c.logger.Flow().Error("Flow halted: no transition configured",
			"group", c.state.ExperimentGroup, "phase", c.phase, "sessionId", c.state.SessionID)
		return
	}

	if transition.AutoAdvance {
		go func() {
			if err := c.Continue(); err != nil {
				c.logger.Flow().Error("Auto-advance failed", "phase", c.phase, "error", err.Error())
			}
		}()
		return
	}

	c.playRevealScript()
}

// playRevealScript schedules the typing/message cadence: typing indicator,
// first message, typing indicator, second message, and after the final pause
// the continue action unlocks. All steps land on timers so Close can cancel
// them.
func (c *Controller) playRevealScript() {
	var at time.Duration

	c.schedule(at, func() { c.view.ShowTyping(0) })
	at += c.config.TypingDurations[0]
	c.schedule(at, func() { c.view.RevealMessage(0) })

	c.schedule(at, func() { c.view.ShowTyping(1) })
	at += c.config.TypingDurations[1]
	c.schedule(at, func() { c.view.RevealMessage(1) })

	at += c.config.TypingDurations[2]
	c.schedule(at, func() { c.view.EnableContinue() })
}

// schedule runs fn after d unless the controller has closed by then.
func (c *Controller) schedule(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	timer := time.AfterFunc(d, func() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			fn()
		}
	})
	c.timers = append(c.timers, timer)
}

// Continue submits the phase transition. It is latched: the first invocation
// wins and every later one is a no-op, so double-clicks and the auto-skip
// path can never produce two server calls. The active session is a hard
// precondition. Fast server responses wait out the minimum thinking time
// before the continuation runs; failures release the latch so the action can
// be retried.
func (c *Controller) Continue() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.submitted {
		c.mu.Unlock()
		c.logger.Flow().Debug("Continue ignored, already submitted", "phase", c.phase, "sessionId", c.state.SessionID)
		return nil
	}
	c.submitted = true
	started := c.activatedAt
	c.mu.Unlock()

	sessionID, ok := c.sessions.GetActiveSessionID()
	if !ok {
		c.logger.Flow().Error("Continue without an active session", "phase", c.phase)
		return servicerror.New("FlowController", "Continue", servicerror.KindPrecondition, "no active session", nil)
	}

	transition, err := skillsranking.NextTransition(c.state.ExperimentGroup, c.phase)
	if err != nil {
		c.logger.Flow().Error("Flow halted: no transition configured",
			"group", c.state.ExperimentGroup, "phase", c.phase, "sessionId", sessionID)
		return servicerror.New("FlowController", "Continue", servicerror.KindConfiguration, "unmapped flow transition", err)
	}

	snapshot, err := c.api.UpdateState(c.ctx, sessionID, transition.Next)
	if err != nil {
		// Release the latch so the user can retry.
		c.mu.Lock()
		c.submitted = false
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.view.ShowSubmitError()
		}
		c.logger.Flow().Warn("Transition failed, continue re-enabled", "phase", c.phase, "sessionId", sessionID, "error", err.Error())
		return servicerror.New("FlowController", "Continue", servicerror.KindRemote, "transition request failed", err)
	}

	if remaining := c.config.MinThinkingTime - c.now().Sub(started); remaining > 0 {
		select {
		case <-time.After(remaining):
		case <-c.ctx.Done():
			return nil
		}
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil
	}

	if c.onFinish != nil {
		c.onFinish(snapshot)
	}
	return nil
}

// Submitted reports whether the latch has fired.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Close tears the activation down: pending timers stop, the in-flight
// request context is cancelled, and any resolution arriving afterwards is
// discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	c.cancel()
	c.logger.Flow().Debug("Flow controller closed", "phase", c.phase, "sessionId", c.state.SessionID)
}
