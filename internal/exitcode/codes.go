package exitcode

// Exit codes for the extraction CLI.
// Orchestration can use these to decide retry strategy.
const (
	// Success - every requested date was extracted and written
	Success = 0

	// ConfigError - missing or invalid configuration, unknown profile, bad flags
	// Don't retry: fix the config first
	ConfigError = 1

	// NetworkError - gridded store or track database unreachable
	// Retry with backoff
	NetworkError = 2

	// StorageError - failed to write results to disk or MinIO/S3
	// Retry with backoff
	StorageError = 4

	// DataError - missing date, unreadable track, field with no valid values
	// Don't retry: investigate the data
	DataError = 5

	// ApplicationError - anything else
	ApplicationError = 6
)
