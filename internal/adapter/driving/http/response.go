package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/triagebot/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// RunResponse is the JSON representation of a recorded run. Items and
// Comments are populated only on the single-run endpoint.
type RunResponse struct {
	ID          string            `json:"id"`
	Policy      string            `json:"policy"`
	DryRun      bool              `json:"dry_run"`
	State       string            `json:"state"`
	Termination string            `json:"termination"`
	Error       string            `json:"error,omitempty"`
	StartedAt   string            `json:"started_at"`
	FinishedAt  string            `json:"finished_at,omitempty"`
	Processed   int               `json:"processed"`
	Acted       int               `json:"acted"`
	ByLabel     map[string]int    `json:"by_label"`
	Items       []ItemResponse    `json:"items,omitempty"`
	Comments    []CommentResponse `json:"comments,omitempty"`
}

// ItemResponse is the JSON representation of an acted item.
type ItemResponse struct {
	Number    int      `json:"number"`
	Kind      string   `json:"kind"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	State     string   `json:"state"`
	Locked    bool     `json:"locked"`
	Labels    []string `json:"labels"`
	BaseRef   string   `json:"base_ref,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// CommentResponse is the JSON representation of a comment a run posted.
type CommentResponse struct {
	ID         int64  `json:"id"`
	ItemNumber int    `json:"item_number"`
	Body       string `json:"body"`
	URL        string `json:"url"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func toRunResponse(r *model.RunResult, detail bool) RunResponse {
	byLabel := r.ByLabel
	if byLabel == nil {
		byLabel = map[string]int{}
	}

	resp := RunResponse{
		ID:          r.ID,
		Policy:      string(r.Policy),
		DryRun:      r.DryRun,
		State:       string(r.State),
		Termination: string(r.Termination),
		Error:       r.Error,
		StartedAt:   formatTime(r.StartedAt),
		FinishedAt:  formatTime(r.FinishedAt),
		Processed:   r.Processed,
		Acted:       r.Acted,
		ByLabel:     byLabel,
	}
	if !detail {
		return resp
	}

	resp.Items = make([]ItemResponse, 0, len(r.ActedItems))
	for _, item := range r.ActedItems {
		resp.Items = append(resp.Items, ItemResponse{
			Number:    item.Number,
			Kind:      string(item.Kind),
			Title:     item.Title,
			URL:       item.URL,
			State:     string(item.State),
			Locked:    item.Locked,
			Labels:    item.LabelNames(),
			BaseRef:   item.BaseRef,
			UpdatedAt: formatTime(item.UpdatedAt),
		})
	}

	resp.Comments = make([]CommentResponse, 0, len(r.Comments))
	for _, c := range r.Comments {
		resp.Comments = append(resp.Comments, CommentResponse{
			ID:         c.ID,
			ItemNumber: c.ItemNumber,
			Body:       c.Body,
			URL:        c.URL,
			CreatedAt:  formatTime(c.CreatedAt),
		})
	}

	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
