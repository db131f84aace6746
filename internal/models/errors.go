package models

import "errors"

// Job-fatal errors. The dispatcher logs these and drops the job.
var (
	// ErrSessionUnavailable is returned when the stashed credentials for a job
	// are missing or a connection cannot be built from them
	ErrSessionUnavailable = errors.New("session unavailable")

	// ErrQuery is returned when the record query or one of its continuation pages fails
	ErrQuery = errors.New("query failed")
)

// Isolated errors. These are captured in CreateResult values and logged, never returned past a batch.
var (
	// ErrChunkCreate marks every record of a chunk whose bulk call failed at the transport level
	ErrChunkCreate = errors.New("chunk create failed")

	// ErrRecordCreate marks a single record rejected inside an otherwise successful bulk call
	ErrRecordCreate = errors.New("record create failed")

	// ErrProgressPublish is logged when a progress event cannot be delivered
	ErrProgressPublish = errors.New("progress publish failed")
)

// ErrNoMessage is returned when the queue is empty
var ErrNoMessage = errors.New("no messages in queue")

// ErrInvalidMessage is returned when a queue message body is not "<jobId>:<payload>"
var ErrInvalidMessage = errors.New("invalid message format")
