package util

const TimeFormat = "2006-01-02 15:04:05"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey  = "user"
	ContextTokenKey = "token"
)
