package model

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a process-unique opaque identifier. It prefers a random UUID
// and falls back to a timestamp-plus-entropy form if UUID generation fails
// (which only happens when the system entropy source is broken).
func NewID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return "id-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" +
		strconv.FormatUint(rand.Uint64(), 36)
}
