package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"landprice/internal/model"
	"landprice/internal/service"
)

// defaultEvalQuestions are answered when eval is run without --questions
var defaultEvalQuestions = []string{
	"Which areas in Tokyo have the highest land prices?",
	"Where are good residential areas near Shibuya?",
}

// evalResult is one line of eval output
type evalResult struct {
	RunID    string           `json:"run_id"`
	Question string           `json:"question"`
	Outcome  *service.Outcome `json:"outcome,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func newAskCmd() *cobra.Command {
	var (
		lat, lon float64
		isPoint  bool
		language string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question with the full pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &model.MessageRequest{Message: args[0]}
			if cmd.Flags().Changed("lat") {
				req.Lat = &lat
			}
			if cmd.Flags().Changed("lon") {
				req.Lon = &lon
			}
			if cmd.Flags().Changed("point") {
				req.IsPoint = &isPoint
			}
			if language != "" {
				req.Language = &language
			}
			if err := req.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			outcome, err := a.Pipeline.Run(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), outcome)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude of the point of interest")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude of the point of interest")
	cmd.Flags().BoolVar(&isPoint, "point", false, "ask about the exact point rather than the surrounding area")
	cmd.Flags().StringVar(&language, "language", "", "language of the not-found message (ja, en)")

	return cmd
}

func newEvalCmd() *cobra.Command {
	var questionsFile string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the evaluation questions and print questions, contexts and answers",
		Long: `Eval answers each question with the full pipeline and prints one JSON
document per question with the retrieved contexts and the response, ready to
feed a faithfulness / answer relevancy scorer.

Questions are read one per line from --questions; blank lines and lines
starting with # are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			questions := defaultEvalQuestions
			if questionsFile != "" {
				f, err := os.Open(questionsFile)
				if err != nil {
					return fmt.Errorf("open questions: %w", err)
				}
				defer f.Close()
				if questions, err = readQuestions(f); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			runID := uuid.NewString()
			failed := 0
			for _, q := range questions {
				result := evalResult{RunID: runID, Question: q}
				outcome, err := a.Pipeline.Run(ctx, &model.MessageRequest{Message: q})
				if err != nil {
					failed++
					result.Error = err.Error()
				} else {
					result.Outcome = outcome
				}
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}

			log.Info().
				Str("run_id", runID).
				Int("questions", len(questions)).
				Int("failed", failed).
				Msg("Evaluation finished")
			if failed > 0 {
				return fmt.Errorf("%d of %d questions failed", failed, len(questions))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&questionsFile, "questions", "", "file with one question per line")
	return cmd
}

func readQuestions(r io.Reader) ([]string, error) {
	var questions []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions found")
	}
	return questions, nil
}
