package pipeline

import (
	"fmt"
	"strings"

	"github.com/scribemark/feedback/llm"
	"github.com/scribemark/feedback/normalize"
)

// CorrectiveInstruction is appended to the prompt when the first response was not valid JSON.
const CorrectiveInstruction = "Your previous reply could not be parsed. Please ensure valid JSON: respond with only the JSON object, no commentary and no code fences."

// PromptBuilder produces the prompt text for a generation request.
type PromptBuilder interface {
	BuildPrompt() (string, error)
}

// StaticPrompt is a prompt that has already been written.
type StaticPrompt string

// BuildPrompt implements PromptBuilder.
func (p StaticPrompt) BuildPrompt() (string, error) {
	return string(p), nil
}

// Assignment describes the writing task feedback is generated for.
type Assignment struct {
	Title        string
	Instructions string
	GradeLevel   string
}

func (a Assignment) validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return llm.NewPromptValidationError("assignment title is required")
	}
	if strings.TrimSpace(a.Instructions) == "" {
		return llm.NewPromptValidationError("assignment instructions are required")
	}
	return nil
}

func (a Assignment) section() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ASSIGNMENT TITLE:\n%s\n\nINSTRUCTIONS:\n%s\n", strings.TrimSpace(a.Title), strings.TrimSpace(a.Instructions))
	if a.GradeLevel != "" {
		fmt.Fprintf(&b, "\nGRADE LEVEL:\n%s\n", strings.TrimSpace(a.GradeLevel))
	}
	return b.String()
}

// RubricPrompt asks for a rubric for an assignment.
type RubricPrompt struct {
	Assignment Assignment
}

// BuildPrompt implements PromptBuilder.
func (p RubricPrompt) BuildPrompt() (string, error) {
	if err := p.Assignment.validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf(`You are helping a teacher build a grading rubric for a writing assignment.

%s
RULES:
- Write 3 to 6 criteria. Each criterion has a short title and a one-sentence description.
- Each criterion has exactly 4 performance levels, listed from best to worst.
- Give each level a name, a description and a position from 4 (best) to 1 (worst).

Respond with ONLY this JSON, no explanation, no markdown:
{"criteria": [{"title": "...", "description": "...", "levels": [{"name": "...", "description": "...", "position": 4}]}]}`,
		p.Assignment.section()), nil
}

// RubricCriterion is a stored rubric row referenced by id in student work feedback.
type RubricCriterion struct {
	ID          string
	Title       string
	Description string
	Levels      []RubricLevel
}

// RubricLevel is a stored performance level.
type RubricLevel struct {
	ID          string
	Name        string
	Description string
	Position    int
}

// StudentWorkPrompt asks for feedback on one submission.
type StudentWorkPrompt struct {
	Assignment Assignment
	Rubric     []RubricCriterion
	Submission string
}

// BuildPrompt implements PromptBuilder.
func (p StudentWorkPrompt) BuildPrompt() (string, error) {
	if err := p.Assignment.validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(p.Submission) == "" {
		return "", llm.NewPromptValidationError("student submission is required")
	}

	var rubric strings.Builder
	for _, c := range p.Rubric {
		fmt.Fprintf(&rubric, "- criterion_id=%s: %s (%s)\n", c.ID, c.Title, c.Description)
		for _, l := range c.Levels {
			fmt.Fprintf(&rubric, "    - level_id=%s, position %d: %s - %s\n", l.ID, l.Position, l.Name, l.Description)
		}
	}
	if rubric.Len() == 0 {
		rubric.WriteString("(no rubric; return an empty criterion_levels array)\n")
	}

	return fmt.Sprintf(`You are giving feedback on a student's writing.

%s
RUBRIC:
%s
STUDENT SUBMISSION:
%s

RULES:
- Write a short qualitative paragraph addressed to the student.
- List feedback items of type "%s" or "%s", each with a title, description and a short quote as evidence.
- For every rubric criterion choose one level, using the ids above.
- Add two checks, "%s" and "%s", each with a score from 0 to 100 and an explanation.

Respond with ONLY this JSON, no explanation, no markdown:
{"qualitative_feedback": "...", "feedback_items": [{"type": "strength", "title": "...", "description": "...", "evidence": "..."}], "criterion_levels": [{"criterion_id": "...", "level_id": "...", "explanation": "..."}], "checks": [{"type": "plagiarism", "score": 0, "explanation": "..."}]}`,
		p.Assignment.section(), rubric.String(), strings.TrimSpace(p.Submission),
		normalize.FeedbackStrength, normalize.FeedbackOpportunity,
		normalize.CheckPlagiarism, normalize.CheckLLMGenerated), nil
}

// SummaryPrompt asks for class-level insights from per-student feedback.
type SummaryPrompt struct {
	Assignment Assignment
	Feedback   []string // Qualitative feedback already given to each student
}

// BuildPrompt implements PromptBuilder.
func (p SummaryPrompt) BuildPrompt() (string, error) {
	if err := p.Assignment.validate(); err != nil {
		return "", err
	}
	if len(p.Feedback) == 0 {
		return "", llm.NewPromptValidationError("at least one piece of student feedback is required")
	}

	var fb strings.Builder
	for i, f := range p.Feedback {
		fmt.Fprintf(&fb, "%d. %s\n", i+1, strings.TrimSpace(f))
	}

	return fmt.Sprintf(`You are summarizing how a class performed on a writing assignment.

%s
FEEDBACK GIVEN TO STUDENTS:
%s
RULES:
- Write a short paragraph of insights for the teacher.
- List at least one "%s" and at least one "%s" that apply across the class.

Respond with ONLY this JSON, no explanation, no markdown:
{"qualitative_insights": "...", "feedback_items": [{"type": "strength", "title": "...", "description": "..."}]}`,
		p.Assignment.section(), fb.String(), normalize.FeedbackStrength, normalize.FeedbackOpportunity), nil
}

// withCorrection appends the corrective instruction on its own line.
func withCorrection(prompt string) string {
	return strings.TrimRight(prompt, "\n") + "\n\n" + CorrectiveInstruction
}
