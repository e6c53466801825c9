package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleIntent struct {
	Ward             *string `json:"ward,omitempty"`
	TimeToStationMax *int    `json:"time_to_station_max,omitempty"`
	RequireMaxPrice  *bool   `json:"require_max_price,omitempty"`
}

func TestParseAIJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantWard string
		wantMax  bool
	}{
		{
			name:     "pure JSON",
			input:    `{"ward": "渋谷"}`,
			wantWard: "渋谷",
		},
		{
			name:     "json fence",
			input:    "```json\n{\"ward\": \"港\", \"require_max_price\": true}\n```",
			wantWard: "港",
			wantMax:  true,
		},
		{
			name:     "bare fence",
			input:    "```\n{\"ward\": \"港\"}\n```",
			wantWard: "港",
		},
		{
			name:     "surrounding prose",
			input:    `Here is the result: {"ward": "新宿"} Hope this helps!`,
			wantWard: "新宿",
		},
		{
			name:     "trailing comma",
			input:    `{"ward": "中野",}`,
			wantWard: "中野",
		},
		{
			name:     "single quotes and bare keys",
			input:    `{ward: '目黒', require_max_price: true}`,
			wantWard: "目黒",
			wantMax:  true,
		},
		{
			name:     "leading BOM",
			input:    "\ufeff{\"ward\": \"北\"}",
			wantWard: "北",
		},
		{
			name:     "braces inside strings",
			input:    `note {"ward": "a{b}c"} end`,
			wantWard: "a{b}c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sampleIntent
			require.NoError(t, ParseAIJSON(tt.input, &got))
			require.NotNil(t, got.Ward)
			assert.Equal(t, tt.wantWard, *got.Ward)
			if tt.wantMax {
				require.NotNil(t, got.RequireMaxPrice)
				assert.True(t, *got.RequireMaxPrice)
			} else {
				assert.Nil(t, got.RequireMaxPrice)
			}
		})
	}
}

func TestParseAIJSON_EmptyObject(t *testing.T) {
	var got sampleIntent
	require.NoError(t, ParseAIJSON("{}", &got))
	assert.Equal(t, sampleIntent{}, got)
}

func TestParseAIJSON_Failures(t *testing.T) {
	inputs := map[string]string{
		"empty":      "",
		"prose":      "I could not find anything relevant.",
		"array":      `["ward"]`,
		"wrong type": `{"time_to_station_max": "ten"}`,
		"unbalanced": `{"ward": "渋谷"`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			var got sampleIntent
			err := ParseAIJSON(input, &got)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoJSONObject))
		})
	}
}

func TestParseAIJSON_ResetsTargetAfterFailedCandidate(t *testing.T) {
	ward := "stale"
	got := sampleIntent{Ward: &ward}

	err := ParseAIJSON(`{"ward": "渋谷", "time_to_station_max": "ten"}`, &got)
	require.Error(t, err)
	assert.Nil(t, got.Ward)
}

func TestParseAIJSON_RequiresPointer(t *testing.T) {
	var got sampleIntent
	assert.Error(t, ParseAIJSON(`{}`, got))
}

func TestExtractBalancedBraces(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{`x {"a": {"b": 2}} y {"c": 3}`, `{"a": {"b": 2}}`},
		{`{"a": "}"}`, `{"a": "}"}`},
		{`{"a": "\"}"}`, `{"a": "\"}"}`},
		{`no braces`, ``},
		{`{"open": 1`, ``},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractBalancedBraces(tt.input), tt.input)
	}
}

func TestFixSingleQuotes(t *testing.T) {
	assert.Equal(t, `{"a": "b"}`, fixSingleQuotes(`{'a': 'b'}`))
	assert.Equal(t, `{"a": "it's"}`, fixSingleQuotes(`{"a": "it's"}`))
	assert.Equal(t, `{"a": "say \"hi\""}`, fixSingleQuotes(`{'a': 'say "hi"'}`))
}
