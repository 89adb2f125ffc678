package report_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
	"github.com/ericfisherdev/triagebot/internal/report"
)

var started = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func finishedRun(kind model.PolicyKind, dry bool) *model.RunResult {
	r := model.NewRunResult("run-7", model.Policy{Kind: kind, DryRun: dry}, started)
	r.Terminate(model.RunExhausted, nil)
	r.Finalize(started.Add(2 * time.Minute))
	return r
}

func TestWriteSummary_CloseIssues(t *testing.T) {
	r := finishedRun(model.PolicyCloseIssues, false)
	r.Processed = 12
	r.RecordActed(model.Item{Number: 3})
	r.RecordActed(model.Item{Number: 4})
	r.CountLabels([]model.Label{{Name: "Question"}, {Name: "Duplicate"}})
	r.CountLabels([]model.Label{{Name: "Question"}})

	var buf bytes.Buffer
	require.NoError(t, report.WriteSummary(&buf, r))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Run run-7 (close-issues) ended exhausted", lines[0])
	assert.Equal(t, "Processed Issues: 12", lines[1])
	assert.Equal(t, "Issues Closed: 2", lines[2])
	// Labels are listed in name order.
	assert.Equal(t, "   Duplicate: 1", lines[3])
	assert.Equal(t, "   Question: 2", lines[4])
}

func TestWriteSummary_Wording(t *testing.T) {
	tests := []struct {
		kind model.PolicyKind
		dry  bool
		want []string
	}{
		{kind: model.PolicyClosePRs, want: []string{"Processed Pull Requests: 0", "Pull Requests Closed: 0"}},
		{kind: model.PolicyLockIssues, want: []string{"Processed Issues: 0", "Issues Locked: 0"}},
		{kind: model.PolicyCloseIssues, dry: true, want: []string{"(close-issues, dry run)"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, report.WriteSummary(&buf, finishedRun(tt.kind, tt.dry)))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriteSummary_WriteError(t *testing.T) {
	err := report.WriteSummary(failingWriter{}, finishedRun(model.PolicyCloseIssues, false))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed pipe")
}
