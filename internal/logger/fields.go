package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that segments can
// be traced from creation through teardown in aggregated logs.
const (
	KeyRunID   = "run_id"  // Unique ID of this bridge invocation
	KeySegment = "segment" // Shared memory segment name
	KeyMount   = "mount"   // Resolved tmpfs mount point
	KeyPath    = "path"    // Full backing file path
	KeySize    = "size"    // Segment size in bytes
	KeyError   = "error"   // Error value
)
