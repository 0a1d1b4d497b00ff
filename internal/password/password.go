package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies user passwords with bcrypt.
// The salt is embedded in the stored value.
type Hasher struct {
	cost int

	// dummyHash is compared against when no real hash exists, so an
	// unknown-user login costs the same bcrypt work as a wrong password.
	dummyHash []byte
}

// NewHasher creates a Hasher with the given bcrypt cost.
// Cost 0 selects bcrypt.DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("skyboot-dummy-credential"), cost)
	if err != nil {
		return nil, err
	}
	return &Hasher{cost: cost, dummyHash: dummy}, nil
}

// Hash returns the bcrypt hash of secret
func (h *Hasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether secret matches the stored hash.
// A malformed stored value verifies false, never errors.
func (h *Hasher) Verify(secret, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
}

// VerifyDummy burns the same bcrypt work as a failed Verify. Called on the
// unknown-user path so response timing does not reveal account existence.
func (h *Hasher) VerifyDummy(secret string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(secret))
}
