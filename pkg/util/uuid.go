package util

import (
	"github.com/google/uuid"
)

// UUIDGenerator creates the UUIDs used as operation names and as
// ByteStream upload IDs. It is injected so that tests can use
// predictable values.
type UUIDGenerator func() (uuid.UUID, error)

var (
	_ UUIDGenerator = uuid.NewRandom
	_ UUIDGenerator = uuid.NewUUID
)
