package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadQuestions(t *testing.T) {
	questions, err := readQuestions(strings.NewReader("# smoke set\n渋谷の住宅地は？\n\n  Which ward is cheapest?  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"渋谷の住宅地は？", "Which ward is cheapest?"}, questions)
}

func TestReadQuestions_Empty(t *testing.T) {
	_, err := readQuestions(strings.NewReader("# nothing\n\n"))
	assert.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"ingest", "drop", "ask", "eval"})
}
