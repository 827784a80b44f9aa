// Package interview drives a candidate through the scripted interview:
// NotStarted, InProgress, then Completed once the answers are submitted.
package interview

import (
	"context"
	"strconv"
	"time"

	"candidly/internal/ai"
	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/evaluation"
	"candidly/internal/storage"
	"candidly/internal/types"
)

// Evaluator grades a submitted interview
type Evaluator interface {
	Evaluate(ctx context.Context, in evaluation.Input) types.EvaluationOutcome
}

// Turn is the interviewer's reply and the session position after it.
type Turn struct {
	Reply         string
	Phase         int
	TotalPhases   int
	CandidateID   string
	CandidateName string
	Closed        bool // phases exhausted; Reply is ClosingMessage
}

// Submission is the result of a completed interview.
type Submission struct {
	CandidateID string
	Outcome     types.EvaluationOutcome
	Transcript  string
	Signals     types.IntegritySignals
	State       types.SessionState
}

// Machine runs the interview state machine over a SessionStore. Calls for
// the same token are serialized.
type Machine struct {
	phases      []Phase
	generator   ai.TextGenerator
	evaluator   Evaluator
	store       storage.SessionStore
	prompts     ai.PromptSource
	locks       *KeyedMutex
	logger      *errors.Logger
	chatTimeout time.Duration
	now         func() time.Time
}

// Options configures a Machine.
type Options struct {
	Phases      []Phase
	Prompts     ai.PromptSource
	ChatTimeout time.Duration
}

// NewMachine creates a state machine. Empty Options.Phases means DefaultPhases.
func NewMachine(gen ai.TextGenerator, eval Evaluator, store storage.SessionStore, logger *errors.Logger, opts Options) *Machine {
	phases := opts.Phases
	if len(phases) == 0 {
		phases = DefaultPhases
	}
	return &Machine{
		phases:      phases,
		generator:   gen,
		evaluator:   eval,
		store:       store,
		prompts:     opts.Prompts,
		locks:       NewKeyedMutex(),
		logger:      logger,
		chatTimeout: opts.ChatTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// TotalPhases is the number of interviewer questions after the opening.
func (m *Machine) TotalPhases() int {
	return len(m.phases)
}

// Open stores a fresh NotStarted session for an uploaded candidate.
func (m *Machine) Open(ctx context.Context, token, candidateID, candidateName string, reqs types.JobRequirements) error {
	return m.store.Create(ctx, storage.SessionRecord{
		State: types.SessionState{
			Token:       token,
			TotalPhases: len(m.phases),
			Status:      types.StatusNotStarted,
		},
		CandidateID:   candidateID,
		CandidateName: candidateName,
		Requirements:  reqs,
		Transcript:    types.Transcript{},
	})
}

// Start moves a session from NotStarted to InProgress and returns the greeting.
func (m *Machine) Start(ctx context.Context, token string) (*Turn, error) {
	unlock := m.locks.Lock(token)
	defer unlock()

	rec, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec.State.Status != types.StatusNotStarted {
		return nil, errors.InvalidSession("interview already started")
	}

	now := m.now()
	opening := openingMessage(rec.CandidateName, rec.Requirements.Title)
	rec.State.Phase = 0
	rec.State.StartedAt = now
	rec.State.Status = types.StatusInProgress
	rec.Transcript = append(rec.Transcript, types.Message{Role: types.RoleAssistant, Content: opening, Timestamp: now})
	if err := m.store.Update(ctx, rec); err != nil {
		return nil, err
	}

	m.logger.Info("Interview started", "candidate_id", rec.CandidateID, "total_phases", rec.State.TotalPhases)
	return m.turn(rec, opening, false), nil
}

// AdvanceTurn answers the candidate's message with the current phase's
// question and moves to the next phase. history is the client's view of the
// conversation; when empty the stored transcript is used. Once every phase
// has been asked, the closing message is returned without a model call or
// any state change.
func (m *Machine) AdvanceTurn(ctx context.Context, token, userMessage string, history []types.Message) (*Turn, error) {
	unlock := m.locks.Lock(token)
	defer unlock()

	rec, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec.State.Status != types.StatusInProgress {
		return nil, errors.InvalidSession("interview is not in progress")
	}
	if rec.State.Phase >= rec.State.TotalPhases {
		return m.turn(rec, ClosingMessage, true), nil
	}

	if len(history) == 0 {
		history = rec.Transcript
	}

	callCtx := ctx
	if m.chatTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.chatTimeout)
		defer cancel()
	}

	reply, err := m.generator.Generate(callCtx, ai.Request{
		Prompt:  userMessage,
		System:  m.systemPrompt(rec),
		History: history,
	})
	advanced := err == nil
	if err != nil {
		m.logger.LogError(err, "Interviewer reply failed", "candidate_id", rec.CandidateID, "phase", rec.State.Phase)
		reply = ApologyMessage
	}

	now := m.now()
	rec.Transcript = append(rec.Transcript,
		types.Message{Role: types.RoleUser, Content: userMessage, Timestamp: now},
		types.Message{Role: types.RoleAssistant, Content: reply, Timestamp: now},
	)
	if advanced {
		rec.State.Phase++
	}
	if err := m.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	return m.turn(rec, reply, false), nil
}

// PersistFunc stores a graded interview. Submit calls it before the token is
// invalidated.
type PersistFunc func(ctx context.Context, sub *Submission) error

// Submit grades the interview, invalidates the token and marks the session
// Completed. responses are the candidate's answers as the client recorded
// them; when empty the user turns of the stored transcript are used.
// If persist fails the session stays InProgress so the submit can be retried.
func (m *Machine) Submit(ctx context.Context, token string, responses []string, persist PersistFunc) (*Submission, error) {
	unlock := m.locks.Lock(token)
	defer unlock()

	rec, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec.State.Status != types.StatusInProgress {
		return nil, errors.InvalidSession("interview is not in progress")
	}

	if len(responses) == 0 {
		responses = rec.Transcript.UserContents()
	}
	transcript := rec.Transcript.Render()
	outcome := m.evaluator.Evaluate(ctx, evaluation.Input{
		Transcript:   transcript,
		Requirements: rec.Requirements.String(),
		Signals:      rec.Signals,
		Responses:    responses,
	})

	rec.State.EndedAt = m.now()
	rec.State.Status = types.StatusCompleted
	sub := &Submission{
		CandidateID: rec.CandidateID,
		Outcome:     outcome,
		Transcript:  transcript,
		Signals:     rec.Signals,
		State:       rec.State,
	}
	if persist != nil {
		if err := persist(ctx, sub); err != nil {
			return nil, err
		}
	}
	if err := m.store.Delete(ctx, token); err != nil {
		return nil, err
	}

	m.logger.Info("Interview submitted",
		"candidate_id", rec.CandidateID,
		"score", outcome.Score,
		"flags", len(outcome.Flags),
		"safety_net", outcome.SafetyNet)

	return sub, nil
}

// UpdateSignals ORs client-reported integrity signals into the session.
// Raised signals stay raised.
func (m *Machine) UpdateSignals(ctx context.Context, token string, signals types.IntegritySignals) (types.IntegritySignals, error) {
	unlock := m.locks.Lock(token)
	defer unlock()

	rec, err := m.store.Get(ctx, token)
	if err != nil {
		return types.IntegritySignals{}, err
	}
	rec.Signals = rec.Signals.Merge(signals)
	if err := m.store.Update(ctx, rec); err != nil {
		return types.IntegritySignals{}, err
	}
	return rec.Signals, nil
}

// Status returns the stored session.
func (m *Machine) Status(ctx context.Context, token string) (storage.SessionRecord, error) {
	return m.store.Get(ctx, token)
}

func (m *Machine) systemPrompt(rec storage.SessionRecord) string {
	phase := m.phases[min(rec.State.Phase, len(m.phases)-1)]
	name := rec.CandidateName
	if name == "" {
		name = "the candidate"
	}
	return ai.FillPrompt(ai.ResolvePrompt(m.prompts, config.PromptInterviewSystem, DefaultSystemPrompt), map[string]string{
		"candidate_name":    name,
		"requirements":      rec.Requirements.String(),
		"phase_number":      strconv.Itoa(rec.State.Phase + 1),
		"total_phases":      strconv.Itoa(rec.State.TotalPhases),
		"phase_label":       phase.Label,
		"phase_instruction": phase.Instruction,
	})
}

func (m *Machine) turn(rec storage.SessionRecord, reply string, closed bool) *Turn {
	return &Turn{
		Reply:         reply,
		Phase:         rec.State.Phase,
		TotalPhases:   rec.State.TotalPhases,
		CandidateID:   rec.CandidateID,
		CandidateName: rec.CandidateName,
		Closed:        closed,
	}
}
