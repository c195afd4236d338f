package entity

import "time"

// AccuracyFeedback is one user's verdict on an extraction.
type AccuracyFeedback struct {
	FileID    string    `json:"file_id"`
	Accurate  bool      `json:"is_accurate"`
	Method    string    `json:"extraction_method,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackStats aggregates accuracy feedback for reporting.
type FeedbackStats struct {
	Total        int            `json:"total_feedback"`
	Accurate     int            `json:"accurate_count"`
	AccuracyRate float64        `json:"accuracy_rate"`
	Last30Days   int            `json:"last_30_days"`
	ByMethod     map[string]int `json:"by_method"`
}

// SocialProof is the marketing-friendly view of the stats.
type SocialProof struct {
	AccuracyDisplay string `json:"accuracy_display"`
	FeedbackDisplay string `json:"feedback_display"`
	ShowProof       bool   `json:"show_proof"`
}
