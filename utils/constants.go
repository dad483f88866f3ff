package utils

import "time"

// AvailabilityCachePrefix is the prefix used for Redis availability cache keys.
const AvailabilityCachePrefix = "availability:"

// DefaultAvailabilityCacheTTL applies when no TTL is configured.
const DefaultAvailabilityCacheTTL = 30 * time.Second

// ContextUserIDKey is the gin context key holding the verified token subject.
const ContextUserIDKey = "userID"
