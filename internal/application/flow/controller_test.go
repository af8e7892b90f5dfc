package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/skillsranking"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    []skillsranking.Phase
	snapshot *skillsranking.State
	err      error
	delay    time.Duration
}

func (f *fakeAPI) GetConfig(ctx context.Context) (*Config, error) {
	return &Config{}, nil
}

func (f *fakeAPI) UpdateState(ctx context.Context, sessionID int, next skillsranking.Phase) (*skillsranking.State, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, next)
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSessions struct {
	id int
	ok bool
}

func (f fakeSessions) GetActiveSessionID() (int, bool) { return f.id, f.ok }

type fakeView struct {
	mu           sync.Mutex
	typing       []int
	messages     []int
	continu      bool
	terminal     bool
	submitErrors int
}

func (f *fakeView) ShowTyping(step int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, step)
}

func (f *fakeView) RevealMessage(step int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, step)
}

func (f *fakeView) EnableContinue() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continu = true
}

func (f *fakeView) ShowSubmitError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErrors++
}

func (f *fakeView) ShowTerminal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminal = true
}

func (f *fakeView) submitErrorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitErrors
}

func (f *fakeView) snapshot() (typing, messages []int, continueEnabled, terminal bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.typing...), append([]int(nil), f.messages...), f.continu, f.terminal
}

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToConsole: false,
		OutputToFile:    false,
		JSONFormat:      true,
		DefaultLevel:    slog.LevelError,
	})
	require.NoError(t, err)
	return logger
}

func fastConfig() *Config {
	return &Config{
		TypingDurations: [3]time.Duration{time.Millisecond, time.Millisecond, time.Millisecond},
		MinThinkingTime: 0,
	}
}

func stateAt(group skillsranking.Group, phases ...skillsranking.Phase) *skillsranking.State {
	state := skillsranking.NewState(11, group, time.Now().UTC())
	for _, phase := range phases {
		if err := state.Advance(phase, time.Now().UTC()); err != nil {
			panic(err)
		}
	}
	return state
}

func TestActivateReplayShowsTerminalImmediately(t *testing.T) {
	api := &fakeAPI{}
	view := &fakeView{}

	// State has moved past the briefing; a controller still hosting the
	// briefing is a replay.
	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing, skillsranking.PhaseProofOfValue),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     view,
		Config:   fastConfig(),
		Logger:   testLogger(t),
	})
	defer c.Close()

	c.Activate()

	_, _, _, terminal := view.snapshot()
	assert.True(t, terminal, "replay must render terminal content immediately")

	// A replayed controller never submits, even if continue is invoked.
	require.NoError(t, c.Continue())
	assert.Zero(t, api.callCount())
}

func TestActivatePlaysRevealScript(t *testing.T) {
	api := &fakeAPI{snapshot: stateAt(skillsranking.Group1, skillsranking.PhaseBriefing)}
	view := &fakeView{}

	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     view,
		Config:   fastConfig(),
		Logger:   testLogger(t),
	})
	defer c.Close()

	c.Activate()

	require.Eventually(t, func() bool {
		_, _, continueEnabled, _ := view.snapshot()
		return continueEnabled
	}, time.Second, time.Millisecond)

	typing, messages, _, terminal := view.snapshot()
	assert.Equal(t, []int{0, 1}, typing)
	assert.Equal(t, []int{0, 1}, messages)
	assert.False(t, terminal)
	assert.Zero(t, api.callCount(), "reveal script must not submit anything")
}

func TestContinueUnlocksAfterFinalPause(t *testing.T) {
	api := &fakeAPI{}
	view := &fakeView{}
	cfg := &Config{
		TypingDurations: [3]time.Duration{time.Millisecond, time.Millisecond, 150 * time.Millisecond},
	}

	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     view,
		Config:   cfg,
		Logger:   testLogger(t),
	})
	defer c.Close()

	c.Activate()

	require.Eventually(t, func() bool {
		_, messages, _, _ := view.snapshot()
		return len(messages) == 2
	}, time.Second, time.Millisecond)

	// Both messages are out but the third duration has not elapsed yet.
	_, _, continueEnabled, _ := view.snapshot()
	assert.False(t, continueEnabled, "continue must wait out the final pause")

	require.Eventually(t, func() bool {
		_, _, continueEnabled, _ := view.snapshot()
		return continueEnabled
	}, time.Second, time.Millisecond)
}

func TestContinueSubmitsExactlyOnce(t *testing.T) {
	next := stateAt(skillsranking.Group1, skillsranking.PhaseBriefing, skillsranking.PhaseProofOfValue)
	api := &fakeAPI{snapshot: next}

	var mu sync.Mutex
	var finished []*skillsranking.State

	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     &fakeView{},
		Config:   fastConfig(),
		OnFinish: func(s *skillsranking.State) {
			mu.Lock()
			finished = append(finished, s)
			mu.Unlock()
		},
		Logger: testLogger(t),
	})
	defer c.Close()
	c.Activate()

	require.NoError(t, c.Continue())
	require.NoError(t, c.Continue()) // latched: second call is a no-op

	assert.Equal(t, 1, api.callCount())
	assert.Equal(t, []skillsranking.Phase{skillsranking.PhaseProofOfValue}, api.calls)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, finished, 1)
	assert.Equal(t, skillsranking.PhaseProofOfValue, finished[0].CurrentPhase())
}

func TestContinueRequiresActiveSession(t *testing.T) {
	api := &fakeAPI{}

	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{ok: false},
		View:     &fakeView{},
		Config:   fastConfig(),
		Logger:   testLogger(t),
	})
	defer c.Close()
	c.Activate()

	err := c.Continue()
	require.Error(t, err)
	assert.Equal(t, servicerror.KindPrecondition, servicerror.KindOf(err))
	assert.Zero(t, api.callCount(), "precondition failure must not reach the server")
}

func TestContinueFailureReleasesLatch(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection reset")}
	view := &fakeView{}

	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     view,
		Config:   fastConfig(),
		Logger:   testLogger(t),
	})
	defer c.Close()
	c.Activate()

	err := c.Continue()
	require.Error(t, err)
	assert.Equal(t, servicerror.KindRemote, servicerror.KindOf(err))
	assert.False(t, c.Submitted(), "failure must release the latch for retry")
	assert.Equal(t, 1, view.submitErrorCount(), "view must be told to roll back")

	// Retry succeeds once the server recovers.
	api.mu.Lock()
	api.err = nil
	api.snapshot = stateAt(skillsranking.Group1, skillsranking.PhaseBriefing, skillsranking.PhaseProofOfValue)
	api.mu.Unlock()

	require.NoError(t, c.Continue())
	assert.Equal(t, 2, api.callCount())
	assert.True(t, c.Submitted())
}

func TestContinueWaitsOutMinimumThinkingTime(t *testing.T) {
	api := &fakeAPI{snapshot: stateAt(skillsranking.Group1, skillsranking.PhaseBriefing, skillsranking.PhaseProofOfValue)}
	cfg := fastConfig()
	cfg.MinThinkingTime = 60 * time.Millisecond

	done := make(chan struct{})
	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     &fakeView{},
		Config:   cfg,
		OnFinish: func(*skillsranking.State) { close(done) },
		Logger:   testLogger(t),
	})
	defer c.Close()
	c.Activate()

	start := time.Now()
	require.NoError(t, c.Continue())
	<-done

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"fast server responses must wait out the thinking-time budget")
}

func TestAutoAdvanceGroupSubmitsWithoutContinue(t *testing.T) {
	next := stateAt(skillsranking.Group4, skillsranking.PhaseBriefing, skillsranking.PhaseProofOfValue)
	api := &fakeAPI{snapshot: next}

	done := make(chan struct{})
	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group4, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     &fakeView{},
		Config:   fastConfig(),
		OnFinish: func(*skillsranking.State) { close(done) },
		Logger:   testLogger(t),
	})
	defer c.Close()

	c.Activate()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auto-advance never completed")
	}
	assert.Equal(t, 1, api.callCount())
	assert.Equal(t, []skillsranking.Phase{skillsranking.PhaseProofOfValue}, api.calls)
}

func TestCloseCancelsScheduledSteps(t *testing.T) {
	api := &fakeAPI{}
	view := &fakeView{}
	cfg := &Config{
		TypingDurations: [3]time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond},
	}

	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     view,
		Config:   cfg,
		Logger:   testLogger(t),
	})

	c.Activate()
	c.Close()

	time.Sleep(120 * time.Millisecond)
	_, messages, continueEnabled, _ := view.snapshot()
	assert.Empty(t, messages, "no message may reveal after Close")
	assert.False(t, continueEnabled)
}

func TestResolutionAfterCloseIsIgnored(t *testing.T) {
	api := &fakeAPI{
		snapshot: stateAt(skillsranking.Group1, skillsranking.PhaseBriefing, skillsranking.PhaseProofOfValue),
		delay:    40 * time.Millisecond,
	}

	var mu sync.Mutex
	finishedCount := 0
	view := &fakeView{}
	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     view,
		Config:   fastConfig(),
		OnFinish: func(*skillsranking.State) {
			mu.Lock()
			finishedCount++
			mu.Unlock()
		},
		Logger: testLogger(t),
	})
	c.Activate()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Continue() }()

	time.Sleep(10 * time.Millisecond)
	c.Close()
	<-errCh

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, finishedCount, "a resolution landing after Close must be discarded")
	assert.Zero(t, view.submitErrorCount(), "no rollback callback after Close")
}

func TestContinueAfterCloseIsNoop(t *testing.T) {
	api := &fakeAPI{}
	c := NewController(Options{
		Phase:    skillsranking.PhaseBriefing,
		State:    stateAt(skillsranking.Group1, skillsranking.PhaseBriefing),
		API:      api,
		Sessions: fakeSessions{id: 11, ok: true},
		View:     &fakeView{},
		Config:   fastConfig(),
		Logger:   testLogger(t),
	})
	c.Activate()
	c.Close()

	require.NoError(t, c.Continue())
	assert.Zero(t, api.callCount())
}
