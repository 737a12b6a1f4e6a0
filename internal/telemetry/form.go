package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tracebackField is the form's input for the error report.
const tracebackField = "entry.1882440699"

// FormForwarder posts error entries to a Google Form as a plain-text
// traceback.
type FormForwarder struct {
	url    string
	client *http.Client
}

// NewFormForwarder returns nil when formURL is empty.
func NewFormForwarder(formURL string) *FormForwarder {
	if formURL == "" {
		return nil
	}
	return &FormForwarder{
		url:    formURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Forward is a no-op on a nil forwarder.
func (f *FormForwarder) Forward(ctx context.Context, e Entry) error {
	if f == nil {
		return nil
	}
	form := url.Values{tracebackField: {Traceback(e)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post form: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("post form: status %d", resp.StatusCode)
	}
	return nil
}

// Traceback renders an entry as the multi-line report the form stores.
func Traceback(e Entry) string {
	levelID := "N/A"
	if e.LevelID != 0 {
		levelID = fmt.Sprint(e.LevelID)
	}
	action := e.Action
	if action == "" {
		action = "N/A"
	}
	details, err := json.MarshalIndent(e.Details, "", "  ")
	if err != nil {
		details = []byte(fmt.Sprintf("%v", e.Details))
	}

	return strings.Join([]string{
		"=== MAN VS GOD ERROR LOG ===",
		"Timestamp: " + e.Timestamp.UTC().Format(time.RFC3339Nano),
		"Level: " + strings.ToUpper(string(e.Level)),
		"Category: " + string(e.Category),
		"Message: " + e.Message,
		"Session ID: " + e.SessionID,
		"Level ID: " + levelID,
		"Action: " + action,
		"Details: " + string(details),
		"=== END ERROR LOG ===",
	}, "\n")
}
