package evaluation

// DefaultSystemPrompt is the grader persona sent with the rubric.
const DefaultSystemPrompt = `You are a strict, senior technical interviewer grading a screening interview.
Grade harshly and consistently. Most candidates score between 30 and 70.
Scores of 90 or above are reserved for exceptional candidates who give precise,
well-substantiated answers backed by real-world evidence. Never inflate a score
to be encouraging, and never reward confident answers that lack substance.`

// DefaultRubricPrompt is filled with {{requirements}}, {{transcript}},
// {{multiple_faces}}, {{background_noise}} and {{suspected_ai}}.
const DefaultRubricPrompt = `Evaluate the following interview for this role.

JOB REQUIREMENTS:
{{requirements}}

INTEGRITY SIGNALS REPORTED DURING THE INTERVIEW:
- Multiple faces detected: {{multiple_faces}}
- Background noise or voices detected: {{background_noise}}
- Suspected AI assistance: {{suspected_ai}}

TRANSCRIPT:
{{transcript}}

SCORING RUBRIC (100 points total):
- Technical depth: up to 30 points
- Problem solving: up to 25 points
- Communication: up to 15 points
- Real-world evidence (concrete projects, numbers, outcomes): up to 15 points
- Fit with the job requirements: up to 15 points

MANDATORY DEDUCTIONS:
- Each vague or unsubstantiated answer: -10
- Multiple faces detected: -20
- Background noise or voices detected: -10
- Suspected AI assistance: -25

Start from zero and award points only for demonstrated ability. When unsure, score lower.

Respond in exactly this format:
SCORE: <integer 0-100>
SUMMARY: <two to four sentences assessing the candidate>
STRENGTHS:
- <strength>
IMPROVEMENTS:
- <area to improve>`

const retryPrompt = `An interview transcript of %d characters was graded.
Integrity signals: %s.
Reply with a single integer from 0 to 100 representing the candidate's score. Reply with the number only.`

const summaryPrompt = `Summarize the candidate's performance in this interview transcript in two to four sentences.
Be factual and critical. Do not include a score.

TRANSCRIPT:
%s`

// GenericSummary is used whenever no model summary could be produced.
const GenericSummary = "The candidate completed the interview. An automated summary could not be generated; review the transcript for details."
