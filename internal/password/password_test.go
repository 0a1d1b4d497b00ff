package password

import "testing"

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	// MinCost keeps the suite fast; production uses a real cost.
	h, err := NewHasher(4)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals the plaintext")
	}

	if !h.Verify("correct horse battery staple", hash) {
		t.Error("correct password failed verification")
	}
	if h.Verify("wrong password", hash) {
		t.Error("wrong password passed verification")
	}
}

func TestHasher_HashesAreSalted(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
	if !h.Verify("same-password", a) || !h.Verify("same-password", b) {
		t.Error("salted hashes failed verification")
	}
}

func TestHasher_VerifyMalformedStored(t *testing.T) {
	h := newTestHasher(t)

	for _, stored := range []string{"", "not-a-bcrypt-hash", "$2a$xx$garbage"} {
		if h.Verify("anything", stored) {
			t.Errorf("Verify against %q = true, want false", stored)
		}
	}
}

func TestHasher_VerifyDummy(t *testing.T) {
	h := newTestHasher(t)

	// Must not panic and must never authenticate anything; it exists to
	// burn bcrypt work on the unknown-user path.
	h.VerifyDummy("any password")
	h.VerifyDummy("")
}
