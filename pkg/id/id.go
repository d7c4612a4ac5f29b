package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ⭐ SSOT: record identifiers are generated only here
var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string for an operation.
// IDs generated within the same millisecond stay lexicographically increasing.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		panic(err)
	}
	return id.String()
}

// NewAccount returns a random UUID for an account
func NewAccount() string {
	return uuid.NewString()
}

// IsULID reports whether s parses as a ULID
func IsULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
