package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidly/internal/ai"
	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/evaluation"
	"candidly/internal/storage"
	"candidly/internal/types"
)

type echoGenerator struct {
	calls   atomic.Int32
	fail    atomic.Bool
	mu      sync.Mutex
	systems []string
}

func (g *echoGenerator) Generate(_ context.Context, req ai.Request) (string, error) {
	n := g.calls.Add(1)
	g.mu.Lock()
	g.systems = append(g.systems, req.System)
	g.mu.Unlock()
	if g.fail.Load() {
		return "", errors.ProviderUnavailable("all", fmt.Errorf("down"))
	}
	return fmt.Sprintf("question %d", n), nil
}

type fixedEvaluator struct {
	calls int
	last  evaluation.Input
}

func (f *fixedEvaluator) Evaluate(_ context.Context, in evaluation.Input) types.EvaluationOutcome {
	f.calls++
	f.last = in
	return types.EvaluationOutcome{Score: 64, Summary: "solid", Flags: evaluation.BuildFlags(in.Signals, false)}
}

func newMachine(t *testing.T) (*Machine, *echoGenerator, *fixedEvaluator) {
	t.Helper()
	gen := &echoGenerator{}
	eval := &fixedEvaluator{}
	m := NewMachine(gen, eval, storage.NewMemorySessionStore(0), errors.NewDiscardLogger(), Options{})
	require.NoError(t, m.Open(context.Background(), "tok", "cand-1", "Ada", types.JobRequirements{Title: "Go Developer"}))
	return m, gen, eval
}

func TestStart(t *testing.T) {
	m, gen, _ := newMachine(t)
	ctx := context.Background()

	turn, err := m.Start(ctx, "tok")
	require.NoError(t, err)
	assert.Contains(t, turn.Reply, "Hello Ada")
	assert.Contains(t, turn.Reply, "Go Developer")
	assert.Equal(t, 0, turn.Phase)
	assert.Equal(t, 2, turn.TotalPhases)
	assert.Zero(t, gen.calls.Load())

	rec, err := m.Status(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, rec.State.Status)
	assert.False(t, rec.State.StartedAt.IsZero())

	_, err = m.Start(ctx, "tok")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession), "start twice")

	_, err = m.Start(ctx, "unknown")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
}

func TestAdvanceTurnBeforeStart(t *testing.T) {
	m, gen, _ := newMachine(t)
	_, err := m.AdvanceTurn(context.Background(), "tok", "hi", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
	assert.Zero(t, gen.calls.Load())
}

func TestAdvanceTurnStopsAfterLastPhase(t *testing.T) {
	m, gen, _ := newMachine(t)
	ctx := context.Background()
	_, err := m.Start(ctx, "tok")
	require.NoError(t, err)

	first, err := m.AdvanceTurn(ctx, "tok", "I built a queue", nil)
	require.NoError(t, err)
	assert.Equal(t, "question 1", first.Reply)
	assert.Equal(t, 1, first.Phase)

	second, err := m.AdvanceTurn(ctx, "tok", "Using channels", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Phase)
	assert.False(t, second.Closed)

	third, err := m.AdvanceTurn(ctx, "tok", "Anything else?", nil)
	require.NoError(t, err)
	assert.True(t, third.Closed)
	assert.Contains(t, third.Reply, "concludes our interview")
	assert.Equal(t, 2, third.Phase)
	assert.EqualValues(t, 2, gen.calls.Load(), "closing message needs no model call")

	rec, err := m.Status(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.State.Phase)
	assert.Len(t, rec.Transcript, 5, "opening plus two exchanges")

	require.Len(t, gen.systems, 2)
	assert.Contains(t, gen.systems[0], "technical follow-up")
	assert.Contains(t, gen.systems[1], "design/algorithmic challenge")
	assert.Contains(t, gen.systems[0], "screening Ada")
}

func TestAdvanceTurnGeneratorFailure(t *testing.T) {
	m, gen, _ := newMachine(t)
	ctx := context.Background()
	_, err := m.Start(ctx, "tok")
	require.NoError(t, err)

	gen.fail.Store(true)
	turn, err := m.AdvanceTurn(ctx, "tok", "my answer", nil)
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, turn.Reply)
	assert.Equal(t, 0, turn.Phase)

	gen.fail.Store(false)
	turn, err = m.AdvanceTurn(ctx, "tok", "my answer again", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, turn.Phase)
}

func TestAdvanceTurnConcurrentNeverSkipsPhase(t *testing.T) {
	gen := &echoGenerator{}
	script := PhasesFromConfig(config.InterviewConfig{TotalPhases: 5})
	m := NewMachine(gen, &fixedEvaluator{}, storage.NewMemorySessionStore(0), errors.NewDiscardLogger(), Options{Phases: script})
	ctx := context.Background()
	require.NoError(t, m.Open(ctx, "tok", "c", "", types.JobRequirements{}))
	_, err := m.Start(ctx, "tok")
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		phases []int
	)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			turn, err := m.AdvanceTurn(ctx, "tok", fmt.Sprintf("answer %d", i), nil)
			if assert.NoError(t, err) && !turn.Closed {
				mu.Lock()
				phases = append(phases, turn.Phase)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, phases)
	assert.EqualValues(t, 5, gen.calls.Load())
	assert.Zero(t, m.locks.Len())
}

func TestSubmit(t *testing.T) {
	m, _, eval := newMachine(t)
	ctx := context.Background()
	_, err := m.Start(ctx, "tok")
	require.NoError(t, err)
	_, err = m.AdvanceTurn(ctx, "tok", "I love Go", nil)
	require.NoError(t, err)

	signals, err := m.UpdateSignals(ctx, "tok", types.IntegritySignals{MultipleFaces: true})
	require.NoError(t, err)
	assert.True(t, signals.MultipleFaces)
	signals, err = m.UpdateSignals(ctx, "tok", types.IntegritySignals{BackgroundNoise: true})
	require.NoError(t, err)
	assert.True(t, signals.MultipleFaces, "signals never lower")

	sub, err := m.Submit(ctx, "tok", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 64, sub.Outcome.Score)
	assert.Equal(t, "cand-1", sub.CandidateID)
	assert.Equal(t, types.StatusCompleted, sub.State.Status)
	assert.False(t, sub.State.EndedAt.IsZero())
	assert.True(t, strings.HasPrefix(sub.Transcript, "Interviewer: Hello Ada"))
	assert.Contains(t, sub.Transcript, "Candidate: I love Go")
	assert.Equal(t, []string{"I love Go"}, eval.last.Responses)
	assert.Contains(t, eval.last.Requirements, "Position: Go Developer")
	require.Len(t, sub.Outcome.Flags, 2)

	_, err = m.Submit(ctx, "tok", nil, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession), "second submit")
	assert.Equal(t, 1, eval.calls)

	_, err = m.AdvanceTurn(ctx, "tok", "late", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
	_, err = m.UpdateSignals(ctx, "tok", types.IntegritySignals{SuspectedAI: true})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
}

func TestSubmitPersistFailureKeepsSession(t *testing.T) {
	m, _, eval := newMachine(t)
	ctx := context.Background()
	_, err := m.Start(ctx, "tok")
	require.NoError(t, err)

	_, err = m.Submit(ctx, "tok", nil, func(context.Context, *Submission) error {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "write failed", nil)
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageFailed))

	rec, err := m.Status(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, rec.State.Status)

	var persisted *Submission
	sub, err := m.Submit(ctx, "tok", nil, func(_ context.Context, s *Submission) error {
		persisted = s
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, sub, persisted)
	assert.Equal(t, types.StatusCompleted, persisted.State.Status)
	assert.Equal(t, 2, eval.calls)

	_, err = m.Status(ctx, "tok")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
}

func TestSubmitBeforeStart(t *testing.T) {
	m, _, eval := newMachine(t)
	_, err := m.Submit(context.Background(), "tok", []string{"x"}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSession))
	assert.Zero(t, eval.calls)
}

func TestPhasesFromConfig(t *testing.T) {
	assert.Equal(t, DefaultPhases, PhasesFromConfig(config.InterviewConfig{TotalPhases: 2}))

	custom := PhasesFromConfig(config.InterviewConfig{
		TotalPhases: 3,
		Phases:      []config.PhaseConfig{{Label: " warm-up ", Instruction: "Ask about tooling."}},
	})
	require.Len(t, custom, 3)
	assert.Equal(t, "warm-up", custom[0].Label)
	assert.Equal(t, DefaultPhases[1], custom[1])
	assert.Equal(t, DefaultPhases[0], custom[2])
}

func TestKeyedMutex(t *testing.T) {
	k := NewKeyedMutex()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("a")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Zero(t, k.Len())
}
