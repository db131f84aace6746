package models

import "time"

// QueueMessage is the structure moved through the job queue.
// Body carries the raw "<jobId>:<payload>" text published by the intake side.
type QueueMessage struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
