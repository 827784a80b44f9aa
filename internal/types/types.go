package types

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder values substituted during normalization.
const (
	UnknownCandidateName = "Unknown Candidate"
	PlaceholderEmail     = "noemail@provided.com"
)

// CandidateProfile represents the structured fields parsed from a resume.
// Optional fields are nil when the resume does not provide them and are
// serialized as JSON null.
type CandidateProfile struct {
	Name       string  `json:"name" yaml:"name"`
	Email      string  `json:"email" yaml:"email"`
	Phone      *string `json:"phone" yaml:"phone"`
	Location   *string `json:"location" yaml:"location"`
	Experience *string `json:"experience" yaml:"experience"`
	Skills     *string `json:"skills" yaml:"skills"`
	Education  *string `json:"education" yaml:"education"`
}

// Deref returns the value of an optional field, or "" when absent.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Optional returns nil for blank strings and a pointer to the trimmed value otherwise.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ScoreResult represents a candidate-vs-requirements match score
type ScoreResult struct {
	Score     int      `json:"score" yaml:"score"` // 0-100
	Strengths []string `json:"strengths" yaml:"strengths"`
	Gaps      []string `json:"gaps" yaml:"gaps"`
	Reasoning string   `json:"reasoning" yaml:"reasoning"`
	Provider  string   `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// ClampScore bounds a score to the closed range [0, 100].
func ClampScore(score int) int {
	return max(0, min(100, score))
}

// JobRequirements describes the role a candidate is screened against.
type JobRequirements struct {
	Title        string `json:"title" yaml:"title"`
	Department   string `json:"department" yaml:"department"`
	Location     string `json:"location" yaml:"location"`
	Requirements string `json:"requirements" yaml:"requirements"`
}

// String renders the requirements block embedded in scoring and evaluation prompts.
func (j JobRequirements) String() string {
	reqs := strings.TrimSpace(j.Requirements)
	if reqs == "" {
		reqs = "Not specified"
	}
	return fmt.Sprintf("Position: %s\nDepartment: %s\nLocation: %s\nRequirements: %s",
		j.Title, j.Department, j.Location, reqs)
}

// SessionStatus is the lifecycle state of an interview session
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// SessionState tracks one candidate's progress through the interview.
type SessionState struct {
	Token       string        `json:"token"`
	Phase       int           `json:"phase"`
	TotalPhases int           `json:"total_phases"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	EndedAt     time.Time     `json:"ended_at,omitzero"`
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in the interview conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Transcript is the ordered conversation of a session.
type Transcript []Message

// Render produces the flat text form stored after submission.
func (t Transcript) Render() string {
	var b strings.Builder
	for i, m := range t {
		if i > 0 {
			b.WriteString("\n\n")
		}
		speaker := "Candidate"
		if m.Role == RoleAssistant {
			speaker = "Interviewer"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// UserContents returns the candidate's side of the conversation.
func (t Transcript) UserContents() []string {
	var out []string
	for _, m := range t {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

// IntegritySignals are booleans reported by the proctoring client.
// A signal once raised is never lowered.
type IntegritySignals struct {
	MultipleFaces   bool `json:"multiple_faces"`
	BackgroundNoise bool `json:"background_noise"`
	SuspectedAI     bool `json:"suspected_ai"`
}

// Merge returns the union of two signal sets.
func (s IntegritySignals) Merge(o IntegritySignals) IntegritySignals {
	return IntegritySignals{
		MultipleFaces:   s.MultipleFaces || o.MultipleFaces,
		BackgroundNoise: s.BackgroundNoise || o.BackgroundNoise,
		SuspectedAI:     s.SuspectedAI || o.SuspectedAI,
	}
}

// Flag is a structured integrity finding attached to an evaluation
type Flag struct {
	Kind        string `json:"type" yaml:"type"` // "face", "sound" or "ai"
	Severity    string `json:"severity" yaml:"severity"`
	Description string `json:"description" yaml:"description"`
}

// AuthenticityReport is the output of the AI-authorship heuristic
type AuthenticityReport struct {
	Confidence     float64  `json:"confidence" yaml:"confidence"`
	Detected       bool     `json:"detected" yaml:"detected"`
	MatchedPhrases []string `json:"matched_phrases" yaml:"matched_phrases"`
	Reason         string   `json:"reason" yaml:"reason"`
}

// EvaluationOutcome is the final assessment produced once per session
type EvaluationOutcome struct {
	Score        int                 `json:"score" yaml:"score"`
	Summary      string              `json:"summary" yaml:"summary"`
	Flags        []Flag              `json:"flags" yaml:"flags"`
	Strengths    []string            `json:"strengths" yaml:"strengths"`
	Improvements []string            `json:"improvements" yaml:"improvements"`
	Authenticity *AuthenticityReport `json:"authenticity,omitempty" yaml:"authenticity,omitempty"`
	SafetyNet    bool                `json:"safety_net,omitempty" yaml:"safety_net,omitempty"`
}

// Recruitment is an open position candidates apply to with an interview code.
type Recruitment struct {
	ID            string          `json:"id"`
	InterviewCode string          `json:"interview_code"`
	Status        string          `json:"status"` // Active, Closed, Draft
	Job           JobRequirements `json:"job"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Recruitment and candidate statuses
const (
	RecruitmentActive = "Active"
	RecruitmentClosed = "Closed"

	CandidateNew         = "New"
	CandidateShortlisted = "Shortlisted"
	CandidateInterviewed = "Interviewed"
	CandidateOffered     = "Offered"
	CandidateRejected    = "Rejected"
)

// CandidateStatuses lists every status a recruiter may assign.
var CandidateStatuses = []string{
	CandidateNew, CandidateShortlisted, CandidateInterviewed, CandidateOffered, CandidateRejected,
}

// RecruitmentStats counts a recruitment's candidates by pipeline stage.
type RecruitmentStats struct {
	TotalApplicants int `json:"total_applicants"`
	Shortlisted     int `json:"shortlisted"`
	Interviewed     int `json:"interviewed"`
	Offered         int `json:"offered"`
}

// CandidateRecord is the persisted view of a screened candidate.
type CandidateRecord struct {
	ID             string             `json:"id"`
	RecruitmentID  string             `json:"recruitment_id,omitempty"`
	Status         string             `json:"status"`
	Profile        CandidateProfile   `json:"profile"`
	ATS            *ScoreResult       `json:"ats,omitempty"`
	Requirements   JobRequirements    `json:"requirements"`
	Evaluation     *EvaluationOutcome `json:"evaluation,omitempty"`
	Signals        IntegritySignals   `json:"signals"`
	TranscriptPath string             `json:"transcript_path,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// InterviewScore returns the evaluation score, or -1 before evaluation.
func (c CandidateRecord) InterviewScore() int {
	if c.Evaluation == nil {
		return -1
	}
	return c.Evaluation.Score
}

// ATSScore returns the résumé match score, or -1 when unscored.
func (c CandidateRecord) ATSScore() int {
	if c.ATS == nil {
		return -1
	}
	return c.ATS.Score
}

// ScreeningReport is the offline view of a parsed and optionally scored résumé.
type ScreeningReport struct {
	Profile  CandidateProfile `json:"profile" yaml:"profile"`
	ParsedBy string           `json:"parsed_by" yaml:"parsed_by"`
	Score    *ScoreResult     `json:"score,omitempty" yaml:"score,omitempty"`
}
