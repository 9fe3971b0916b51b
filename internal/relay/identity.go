package relay

import (
	"encoding/binary"
	"strconv"

	"github.com/google/uuid"
)

// GenerateID returns a short opaque client identifier. The token is the
// first 64 random bits of a v4 UUID rendered in base36, so it is compact and
// alphanumeric. It is not checked against the registry; see Relay.nextID.
func GenerateID() string {
	u := uuid.New()
	return strconv.FormatUint(binary.BigEndian.Uint64(u[8:]), 36)
}
