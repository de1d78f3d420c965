package instance

import "os"

const (
	envWorkerID     = "VENDORLEDGER_WORKER_ID"
	defaultWorkerID = "worker-0"
)

// GetID returns the worker instance identifier used for lock ownership and log correlation.
func GetID() string {
	if id := os.Getenv(envWorkerID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultWorkerID
}
