package service

import (
	"context"
	"fmt"
	"strings"
)

const answerSystemPromptTemplate = `You are an assistant that answers questions about land prices in Tokyo.
Answer using ONLY the information provided below. Do not speculate and do not use outside knowledge.
If the information does not contain the answer, say that you do not know.
Detect the language of the question, ignoring numerals, symbols and coordinates, and answer in that language.
If the language cannot be determined, answer in %s.`

// AnswerGenerator composes a grounded answer from retrieved contexts
type AnswerGenerator struct {
	llm              ChatCompleter
	fallbackLanguage string
}

// NewAnswerGenerator creates a new answer generator
func NewAnswerGenerator(llm ChatCompleter, fallbackLanguage string) *AnswerGenerator {
	if fallbackLanguage == "" {
		fallbackLanguage = "English"
	}
	return &AnswerGenerator{llm: llm, fallbackLanguage: fallbackLanguage}
}

// Generate makes a single completion call and returns its text unmodified
func (g *AnswerGenerator) Generate(ctx context.Context, question string, contexts []string) (string, error) {
	answer, err := g.llm.Complete(ctx, CompletionRequest{
		System: fmt.Sprintf(answerSystemPromptTemplate, g.fallbackLanguage),
		User:   BuildAnswerPrompt(question, contexts),
	})
	if err != nil {
		return "", fmt.Errorf("answer completion: %w", err)
	}
	return answer, nil
}

// BuildAnswerPrompt lays out the contexts, in ranking order separated by blank
// lines, followed by the question
func BuildAnswerPrompt(question string, contexts []string) string {
	var sb strings.Builder
	sb.WriteString("Information:\n")
	sb.WriteString(strings.Join(contexts, "\n\n"))
	sb.WriteString("\n\nQuestion:\n")
	sb.WriteString(question)
	return sb.String()
}
