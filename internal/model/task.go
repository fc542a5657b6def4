package model

import "time"

type TaskKind string

const (
	TaskKindPost      TaskKind = "post"
	TaskKindConnect   TaskKind = "connect"
	TaskKindMessaging TaskKind = "messaging"
)

func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindPost, TaskKindConnect, TaskKindMessaging:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskError     TaskStatus = "error"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskError
}

// TaskPayload is the non-secret part of a submitted request. Passwords never reach the store.
type TaskPayload struct {
	Email    string `json:"email,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Budget   int    `json:"budget,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Industry string `json:"industry,omitempty"`
	SkipPost bool   `json:"skipPost,omitempty"`
}

type Task struct {
	ID        string          `json:"id"`
	Kind      TaskKind        `json:"kind"`
	Status    TaskStatus      `json:"status"`
	Message   string          `json:"message,omitempty"`
	Payload   TaskPayload     `json:"payload"`
	Result    *CampaignResult `json:"result,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type TaskState struct {
	TaskID    string     `json:"taskId"`
	Kind      TaskKind   `json:"kind"`
	Running   bool       `json:"running"`
	Status    TaskStatus `json:"status"`
	StartedMs int64      `json:"startedMs"`
	LastError string     `json:"lastError,omitempty"`
}

type EngineState struct {
	Running int         `json:"running"`
	Limit   int         `json:"limit"`
	Tasks   []TaskState `json:"tasks"`
}
