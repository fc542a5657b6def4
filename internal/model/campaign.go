package model

import "time"

type CategorySpec struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

type CampaignStatus string

const (
	CampaignCompleted      CampaignStatus = "completed"
	CampaignAbortedAtLogin CampaignStatus = "aborted-at-login"
	CampaignAbortedAtSetup CampaignStatus = "aborted-at-setup"
	// CampaignError marks a run stopped by an unexpected failure or cancellation.
	CampaignError CampaignStatus = "error"
)

func (s CampaignStatus) Aborted() bool {
	return s != CampaignCompleted
}

type KeywordResult struct {
	Keyword string `json:"keyword"`
	Target  int    `json:"target"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	Pages   int    `json:"pages"`
}

type CategoryResult struct {
	Name     string          `json:"name"`
	Target   int             `json:"target"`
	Sent     int             `json:"sent"`
	Keywords []KeywordResult `json:"keywords,omitempty"`
}

type CampaignResult struct {
	Status        CampaignStatus   `json:"status"`
	Budget        int              `json:"budget"`
	PostAttempted bool             `json:"postAttempted"`
	PostSucceeded bool             `json:"postSucceeded"`
	TotalSent     int              `json:"totalSent"`
	Replies       int              `json:"replies,omitempty"`
	Categories    []CategoryResult `json:"categories,omitempty"`
	Error         string           `json:"error,omitempty"`
	StartedAt     time.Time        `json:"startedAt"`
	FinishedAt    time.Time        `json:"finishedAt"`
}
