package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AccessGenerationKey holds the counter bumped whenever role grants change.
// Every cached access view embeds the generation it was built under.
func (r *CacheKeyStruct) AccessGenerationKey() string {
	return "rbac:access:generation"
}

// UserGenerationKey holds the counter bumped whenever one user's roles or
// status change.
func (r *CacheKeyStruct) UserGenerationKey(userID int64) string {
	return fmt.Sprintf("rbac:access:user:%d:generation", userID)
}

// UserAccessKey returns the cache key for a user's resolved access view under
// the global and per-user generations it was built from
func (r *CacheKeyStruct) UserAccessKey(generation, userGeneration, userID int64) string {
	return fmt.Sprintf("rbac:access:g%d:u%d:user:%d", generation, userGeneration, userID)
}

// ActivityChannel returns the Redis PubSub channel carrying RBAC change events
func (r *CacheKeyStruct) ActivityChannel() string {
	return "rbac:activity"
}

var CacheKey = NewCacheKeyStruct()
