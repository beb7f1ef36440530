package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/logger"
	"github.com/GoSim-25-26J-441/metrics-loadgen/pkg/models"
)

// CallbackSecretHeader carries the caller's shared secret on callbacks
const CallbackSecretHeader = "X-Loadgen-Callback-Secret"

// NotificationPayload is the JSON body posted to a run's callback URL
type NotificationPayload struct {
	RunID           string           `json:"run_id"`
	Status          models.RunStatus `json:"status"`
	CreatedAtUnixMs int64            `json:"created_at_unix_ms"`
	StartedAtUnixMs int64            `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64            `json:"ended_at_unix_ms,omitempty"`
	Error           string           `json:"error,omitempty"`
	Stats           *models.RunStats `json:"stats,omitempty"`
	Timestamp       int64            `json:"timestamp"`
}

// Notifier posts run completion notifications
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewNotifier creates a notifier with three retries and a 1s base delay
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  1 * time.Second,
	}
}

// Notify sends a notification to callbackURL in the background. A
// {run_id} placeholder in the URL is replaced with the run ID.
func (n *Notifier) Notify(callbackURL, callbackSecret string, rec *RunRecord) {
	if callbackURL == "" || rec == nil {
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", rec.Run.ID)
	payload := NotificationPayload{
		RunID:           rec.Run.ID,
		Status:          rec.Run.Status,
		CreatedAtUnixMs: unixMs(rec.Run.CreatedAt),
		StartedAtUnixMs: unixMs(rec.Run.StartedAt),
		EndedAtUnixMs:   unixMs(rec.Run.EndedAt),
		Error:           rec.Run.Error,
		Stats:           rec.Stats,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}

	go n.send(finalURL, callbackSecret, payload)
}

func (n *Notifier) send(callbackURL, callbackSecret string, payload NotificationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"run_id", payload.RunID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.baseDelay * time.Duration(1<<uint(attempt-1))
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"run_id", payload.RunID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		lastErr = n.post(callbackURL, callbackSecret, body)
		if lastErr == nil {
			logger.Info("notification sent",
				"run_id", payload.RunID,
				"status", payload.Status)
			return
		}
		logger.Warn("notification attempt failed",
			"callback_url", callbackURL,
			"run_id", payload.RunID,
			"attempt", attempt+1,
			"error", lastErr)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"run_id", payload.RunID,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}

func (n *Notifier) post(callbackURL, callbackSecret string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "metrics-loadgen/1.0")
	if callbackSecret != "" {
		req.Header.Set(CallbackSecretHeader, callbackSecret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, snippet)
}

func unixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
