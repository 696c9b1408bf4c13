package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher := NewHasher()
	digest, err := hasher.Hash("Str0ng#Pass99")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(digest, "pbkdf2-sha256$") {
		t.Fatalf("unexpected digest format: %s", digest)
	}
	if !hasher.Verify("Str0ng#Pass99", digest) {
		t.Error("correct password did not verify")
	}
	if hasher.Verify("Str0ng#Pass98", digest) {
		t.Error("wrong password verified")
	}
}

func TestHashUniqueSalt(t *testing.T) {
	hasher := NewHasher()
	first, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatal(err)
	}
	second, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("two digests of the same input are identical, salt is not random")
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	hasher := NewHasher()
	malformed := []string{
		"",
		"not a digest",
		"pbkdf2-sha256$abc$salt$key",
		"pbkdf2-sha256$0$c2FsdA$a2V5",
		"pbkdf2-sha256$120000$!!!$a2V5",
		"pbkdf2-sha256$120000$c2FsdA$!!!",
		"md5$1$c2FsdA$a2V5",
	}
	for _, digest := range malformed {
		if hasher.Verify("whatever", digest) {
			t.Errorf("malformed digest %q verified", digest)
		}
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	hasher := NewHasher()
	digest, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !hasher.Verify("legacy-password", string(digest)) {
		t.Error("bcrypt digest did not verify")
	}
	if hasher.Verify("other-password", string(digest)) {
		t.Error("wrong password verified against bcrypt digest")
	}
}
