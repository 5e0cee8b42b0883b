package cli

// RunOptions holds the flags shared by every command.
type RunOptions struct {
	// Dir holds pipeline definitions served by name.
	Dir string
	// RedisAddr selects the Redis run store and pipeline locks.
	// Empty means runs are kept in memory.
	RedisAddr string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// EncryptionKey is a base64 AES-256 key; when set, run inputs, results
	// and errors are encrypted at rest.
	EncryptionKey string
	// MaskPatterns are regular expressions of map keys whose values are
	// masked before records are stored.
	MaskPatterns []string
	// JSON prints full run records instead of just the result.
	JSON bool
}
