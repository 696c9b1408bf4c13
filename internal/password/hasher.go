package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/glassworks/authcore/params"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const digestScheme = "pbkdf2-sha256"

// Hasher derives and verifies salted password digests. Digests embed their
// scheme, work factor and salt so the parameters can be raised without
// invalidating stored records:
//
//	pbkdf2-sha256$<iterations>$<base64 salt>$<base64 key>
//
// Verify also accepts bcrypt digests produced by earlier deployments.
type Hasher struct {
	iterations int
	saltLen    int
	keyLen     int
}

func NewHasher() *Hasher {
	return &Hasher{
		iterations: params.PBKDF2Iterations,
		saltLen:    params.PBKDF2SaltLength,
		keyLen:     params.PBKDF2KeyLength,
	}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("could not generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(plaintext), salt, h.iterations, h.keyLen, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s",
		digestScheme,
		h.iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the stored digest. A malformed
// digest verifies false; it never returns a distinguishable error.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
	}

	parts := strings.Split(digest, "$")
	if len(parts) != 4 || parts[0] != digestScheme {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(plaintext), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
