package notify

import (
	"context"

	"outreach_engine/internal/model"
)

type CampaignFinishedEvent struct {
	At            int64                `json:"atMs"`
	TaskID        string               `json:"taskId"`
	Kind          model.TaskKind       `json:"kind"`
	Account       string               `json:"account,omitempty"`
	Status        model.CampaignStatus `json:"status"`
	Message       string               `json:"message,omitempty"`
	Budget        int                  `json:"budget,omitempty"`
	Sent          int                  `json:"sent"`
	Replies       int                  `json:"replies,omitempty"`
	PostAttempted bool                 `json:"postAttempted,omitempty"`
	PostSucceeded bool                 `json:"postSucceeded,omitempty"`
}

// EventFromResult builds the notification for a finished task.
func EventFromResult(task model.Task, message string, result model.CampaignResult) CampaignFinishedEvent {
	at := result.FinishedAt
	if at.IsZero() {
		at = task.UpdatedAt
	}
	return CampaignFinishedEvent{
		At:            at.UnixMilli(),
		TaskID:        task.ID,
		Kind:          task.Kind,
		Account:       task.Payload.Email,
		Status:        result.Status,
		Message:       message,
		Budget:        result.Budget,
		Sent:          result.TotalSent,
		Replies:       result.Replies,
		PostAttempted: result.PostAttempted,
		PostSucceeded: result.PostSucceeded,
	}
}

type Notifier interface {
	NotifyCampaignFinished(ctx context.Context, evt CampaignFinishedEvent)
}

type SettingsSource interface {
	GetEmailSettings(ctx context.Context) (model.EmailSettings, bool, error)
}
