package interfaces

// StorageManager owns the credential store and job queue of one backend
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	JobQueue() JobQueue
	Close() error
}
