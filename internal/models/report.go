package models

import (
	"time"
)

// Run statuses recorded in a RunReport
const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Delivery channel names
const (
	ChannelSlack  = "slack"
	ChannelEmail  = "email"
	ChannelNotion = "notion"
)

// DeliveryStatus records the outcome of one delivery channel
type DeliveryStatus struct {
	Enabled   bool   `json:"enabled"`
	Attempted bool   `json:"attempted"`
	Success   bool   `json:"success"`
	Detail    string `json:"detail"`
}

// NotAttempted is the initial status of every channel in a run report
func NotAttempted() DeliveryStatus {
	return DeliveryStatus{Detail: "not_attempted"}
}

// Skipped marks a channel that is not configured
func Skipped(detail string) DeliveryStatus {
	return DeliveryStatus{Detail: detail}
}

// Delivered marks a channel that completed successfully
func Delivered(detail string) DeliveryStatus {
	return DeliveryStatus{Enabled: true, Attempted: true, Success: true, Detail: detail}
}

// DeliveryFailed marks a configured channel whose delivery returned an error
func DeliveryFailed(err error) DeliveryStatus {
	return DeliveryStatus{Enabled: true, Attempted: true, Detail: "error=" + err.Error()}
}

// RunConfigSummary is the subset of configuration echoed into a run report
type RunConfigSummary struct {
	Profile          string `json:"profile"`
	TimeWindowHours  int    `json:"time_window_hours"`
	MaxGDELTRecords  int    `json:"max_gdelt_records"`
	MaxNewsInContext int    `json:"max_news_in_context"`
	KeywordCount     int    `json:"keyword_count"`
	PromptPath       string `json:"prompt_path"`
}

// RunReport is the persisted record of one pipeline run
type RunReport struct {
	RunID        string                    `json:"run_id"`
	TimestampUTC time.Time                 `json:"timestamp_utc"`
	Status       string                    `json:"status"`
	NewsCount    int                       `json:"news_count"`
	Config       RunConfigSummary          `json:"config"`
	Delivery     map[string]DeliveryStatus `json:"delivery"`
	Properties   *DigestProperties         `json:"properties,omitempty"`
	BlockCount   int                       `json:"block_count"`
	Error        string                    `json:"error,omitempty"`
}

// NewRunReport returns a failed report with every channel not attempted
func NewRunReport(runID string, now time.Time, cfg RunConfigSummary) *RunReport {
	return &RunReport{
		RunID:        runID,
		TimestampUTC: now.UTC(),
		Status:       RunStatusFailed,
		Config:       cfg,
		Delivery: map[string]DeliveryStatus{
			ChannelSlack:  NotAttempted(),
			ChannelEmail:  NotAttempted(),
			ChannelNotion: NotAttempted(),
		},
	}
}

// AllAttemptedFailed reports whether at least one channel was attempted and none succeeded
func (r *RunReport) AllAttemptedFailed() bool {
	attempted := 0
	for _, s := range r.Delivery {
		if !s.Attempted {
			continue
		}
		attempted++
		if s.Success {
			return false
		}
	}
	return attempted > 0
}
