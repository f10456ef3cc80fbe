package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/validation"
)

func TestToResourcePrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty string falls back", "", "spark"},
		{"already valid", "pi-job", "pi-job"},
		{"uppercase to lowercase", "SparkPi", "sparkpi"},
		{"underscores replaced", "word_count_job", "word-count-job"},
		{"dots replaced", "etl.daily.run", "etl-daily-run"},
		{"spaces replaced", "my spark app", "my-spark-app"},
		{"leading digit grounded", "2024-backfill", "spark-2024-backfill"},
		{"only special chars falls back", "...---...", "spark"},
		{"separator runs collapsed", "a--b__c", "a-b-c"},
		{"leading hyphen removed", "-job", "job"},
		{"trailing hyphen removed", "job-", "job"},
		{"unicode replaced", "héllo", "h-llo"},
		{"long input truncated", strings.Repeat("a", 100), strings.Repeat("a", 63)},
		{"truncation trims trailing hyphen", strings.Repeat("a", 62) + "--b", strings.Repeat("a", 62)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToResourcePrefix(tt.in)
			require.Equal(t, tt.want, got)

			// Every prefix must itself be a valid service name candidate.
			require.Empty(t, validation.IsDNS1035Label(got), "result %q should be a valid DNS1035 label", got)
		})
	}
}

func TestToLabelValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty string becomes x", "", "x"},
		{"already valid", "spark-pi", "spark-pi"},
		{"uppercase to lowercase", "TeamDataEng", "teamdataeng"},
		{"email keeps its domain dots", "user@example.com", "user-example.com"},
		{"dots preserved", "batch.daily", "batch.daily"},
		{"dot runs collapsed", "etl...v2", "etl.v2"},
		{"dash runs collapsed", "spark--pi", "spark-pi"},
		{"edges trimmed", "@spark!", "spark"},
		{"nothing usable becomes x", "@@@###", "x"},
		{"digits kept", "run42", "run42"},
		{"long input truncated", strings.Repeat("b", 80), strings.Repeat("b", 63)},
		{"trailing separator trimmed", strings.Repeat("b", 62) + "-", strings.Repeat("b", 62)},
		{"truncation trims again", strings.Repeat("b", 62) + "-bb", strings.Repeat("b", 62)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToLabelValue(tt.in)
			require.Equal(t, tt.want, got)

			if got != "x" {
				require.Empty(t, validation.IsValidLabelValue(got), "result %q should be a valid label value", got)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in       string
		keepDots bool
		want     string
	}{
		{in: "Spark_Pi", want: "spark-pi"},
		{in: "a..b", want: "a-b"},
		{in: "a..b", keepDots: true, want: "a.b"},
		{in: "a--b", keepDots: true, want: "a-b"},
		{in: "héllo", want: "h-llo"},
		// Only runs of the same separator collapse.
		{in: "-.-", keepDots: true, want: "-.-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in, tt.keepDots), "sanitize(%q, %t)", tt.in, tt.keepDots)
	}
}

func TestTrimEdges(t *testing.T) {
	for in, want := range map[string]string{
		"abc":       "abc",
		"-abc-":     "abc",
		"..abc..":   "abc",
		"-.-abc-.-": "abc",
		"---":       "",
		"":          "",
		"a":         "a",
		"-a-":       "a",
	} {
		assert.Equal(t, want, trimEdges(in), "input %q", in)
	}
}
