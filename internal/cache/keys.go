package cache

import (
	"fmt"
	"time"
)

const (
	SliceKeyPrefix   = "slice:%s:%s"
	FixtureKeyPrefix = "fixture:%s"
)

const (
	SliceTTL   = 5 * time.Minute
	FixtureTTL = 10 * time.Minute
)

// SliceKey is the cache key of a stored slice.
func SliceKey(scope, key string) string {
	return fmt.Sprintf(SliceKeyPrefix, scope, key)
}

// FixtureKey is the cache key of a decoded fixture file.
func FixtureKey(name string) string {
	return fmt.Sprintf(FixtureKeyPrefix, name)
}
