package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scribemark/feedback/cost"
	"github.com/scribemark/feedback/pipeline"
	"github.com/scribemark/feedback/resilience"
)

type generateFlags struct {
	title        string
	instructions string
	gradeLevel   string
	subjectID    string
	userID       string
	inputPath    string
	rubricPath   string
	timeout      time.Duration
}

// generateOutput is printed to stdout after a successful generation.
type generateOutput struct {
	ID             string                    `json:"id"`
	UseCase        string                    `json:"use_case"`
	Provider       string                    `json:"provider"`
	Model          string                    `json:"model"`
	Attempts       int                       `json:"attempts"`
	CostMicroUnits int64                     `json:"cost_micro_units"`
	Cost           string                    `json:"cost"`
	DurationMS     int64                     `json:"duration_ms"`
	Result         any                       `json:"result"`
	Breakers       []resilience.CircuitState `json:"breakers,omitempty"`
}

func newGenerateCmd(a *app) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a rubric, student work feedback or an assignment summary",
	}
	cmd.PersistentFlags().StringVar(&f.title, "title", "", "Assignment title")
	cmd.PersistentFlags().StringVar(&f.instructions, "instructions", "", "Assignment instructions")
	cmd.PersistentFlags().StringVar(&f.gradeLevel, "grade-level", "", "Grade level of the students")
	cmd.PersistentFlags().StringVar(&f.subjectID, "subject-id", "", "ID of the assignment or student work billed for this call")
	cmd.PersistentFlags().StringVar(&f.userID, "user", os.Getenv("USER"), "ID of the acting user")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 3*time.Minute, "Overall timeout including retries")

	rubric := &cobra.Command{
		Use:   "rubric",
		Short: "Generate a rubric for an assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, a, f, "Assignment", func(ctx context.Context, svc *pipeline.Service, req pipeline.GenerationRequest) (any, *pipeline.Context, error) {
				req.Prompt = pipeline.RubricPrompt{Assignment: f.assignment()}
				return svc.GenerateRubric(ctx, req)
			})
		},
	}

	studentWork := &cobra.Command{
		Use:   "student-work",
		Short: "Generate feedback for one student submission",
		Example: `  feedbackctl generate student-work --title "Persuasive essay" --instructions "..." \
    --subject-id sw-42 --input essay.txt --rubric rubric.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			submission, err := readInput(f.inputPath)
			if err != nil {
				return err
			}
			var criteria []pipeline.RubricCriterion
			if f.rubricPath != "" {
				data, err := os.ReadFile(f.rubricPath) //#nosec 304 -- user supplied input file
				if err != nil {
					return fmt.Errorf("failed to read rubric: %w", err)
				}
				if err := json.Unmarshal(data, &criteria); err != nil {
					return fmt.Errorf("failed to parse rubric: %w", err)
				}
			}
			return runGenerate(cmd, a, f, "StudentWork", func(ctx context.Context, svc *pipeline.Service, req pipeline.GenerationRequest) (any, *pipeline.Context, error) {
				req.Prompt = pipeline.StudentWorkPrompt{Assignment: f.assignment(), Rubric: criteria, Submission: submission}
				return svc.GenerateStudentWorkFeedback(ctx, req)
			})
		},
	}
	studentWork.Flags().StringVar(&f.inputPath, "input", "-", "Submission text file, - for stdin")
	studentWork.Flags().StringVar(&f.rubricPath, "rubric", "", "JSON file with the rubric criteria and levels")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Summarize feedback across all submissions of an assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(f.inputPath)
			if err != nil {
				return err
			}
			// One piece of feedback per non-empty line
			var feedback []string
			for _, line := range strings.Split(text, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					feedback = append(feedback, line)
				}
			}
			return runGenerate(cmd, a, f, "Assignment", func(ctx context.Context, svc *pipeline.Service, req pipeline.GenerationRequest) (any, *pipeline.Context, error) {
				req.Prompt = pipeline.SummaryPrompt{Assignment: f.assignment(), Feedback: feedback}
				return svc.GenerateAssignmentSummary(ctx, req)
			})
		},
	}
	summary.Flags().StringVar(&f.inputPath, "input", "-", "File with one student's feedback per line, - for stdin")

	cmd.AddCommand(rubric, studentWork, summary)
	return cmd
}

func (f *generateFlags) assignment() pipeline.Assignment {
	return pipeline.Assignment{Title: f.title, Instructions: f.instructions, GradeLevel: f.gradeLevel}
}

type generateFunc func(ctx context.Context, svc *pipeline.Service, req pipeline.GenerationRequest) (any, *pipeline.Context, error)

func runGenerate(cmd *cobra.Command, a *app, f *generateFlags, subjectType string, generate generateFunc) error {
	if f.subjectID == "" {
		return fmt.Errorf("--subject-id is required")
	}
	svc, err := a.service()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	result, pc, err := generate(ctx, svc, pipeline.GenerationRequest{
		Subject: cost.Trackable{Type: subjectType, ID: f.subjectID},
		UserID:  f.userID,
	})
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("pipeline_id", pc.ID).
			Str("state", string(pc.State)).
			Int("attempts", pc.Attempts).
			Interface("breakers", svc.BreakerStates()).
			Msg("Generation failed")
		return err
	}

	out := generateOutput{
		ID:         pc.ID,
		UseCase:    string(pc.UseCase),
		Provider:   pc.Provider,
		Attempts:   pc.Attempts,
		DurationMS: pc.Duration().Milliseconds(),
		Result:     result,
		Breakers:   svc.BreakerStates(),
	}
	if pc.Response != nil {
		out.Model = pc.Response.Model
	}
	if pc.Usage != nil {
		out.CostMicroUnits = pc.Usage.CostMicroUnits
		out.Cost = cost.FormatMicroUnits(pc.Usage.CostMicroUnits)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //#nosec 304 -- user supplied input file
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
