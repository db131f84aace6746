package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var jobValidator = validator.New()

// Job is a single unit of work received from a queue channel.
// It lives only for the duration of one execution.
type Job struct {
	ID       string `json:"id" validate:"required"`
	Kind     string `json:"kind" validate:"required"`
	Selector string `json:"selector"`
}

// ParseJob splits a message body of the form "<jobId>:<payload>" on the first colon.
// The payload itself may contain colons (SOQL literals, "create:100").
func ParseJob(channel, body string) (*Job, error) {
	jobID, payload, ok := strings.Cut(body, ":")
	jobID = strings.TrimSpace(jobID)
	if !ok || jobID == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMessage, body)
	}

	job := &Job{
		ID:       jobID,
		Kind:     channel,
		Selector: payload,
	}
	if err := jobValidator.Struct(job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return job, nil
}

// Body renders the job back into its wire form
func (j *Job) Body() string {
	return j.ID + ":" + j.Selector
}
