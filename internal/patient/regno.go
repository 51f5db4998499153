package patient

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const registrationNoLength = 10

// maxRegistrationAttempts bounds allocator retries when generated numbers
// collide with existing patients.
const maxRegistrationAttempts = 5

// newRegistrationNo generates a random 10-digit registration number.
// Leading zeros are allowed; the value is an identifier, not a count.
func newRegistrationNo() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	n := binary.BigEndian.Uint64(buf[:]) % 10_000_000_000
	return fmt.Sprintf("%0*d", registrationNoLength, n)
}
