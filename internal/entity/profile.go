package entity

import "time"

// Profile is a user's subscription record and rolling usage counters.
type Profile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Tier          string    `json:"subscription_tier"`
	PagesToday    int       `json:"pages_used_today"`
	PagesMonth    int       `json:"pages_used_month"`
	LastUsageDate time.Time `json:"last_usage_date"`
	CreatedAt     time.Time `json:"created_at"`
}
