package screening

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"candidly/internal/storage"
)

const (
	codePrefix   = "CNDLY"
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeTries = 20
)

var codePattern = regexp.MustCompile(`^CNDLY-\d{3}-[A-Z0-9]{6}$`)

// ValidCodeFormat reports whether code looks like CNDLY-123-AB12CD.
func ValidCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}

// NormalizeCode uppercases and trims a code typed by a candidate.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newInterviewCode() (string, error) {
	digits, err := randomString("0123456789", 3)
	if err != nil {
		return "", err
	}
	suffix, err := randomString(codeAlphabet, 6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", codePrefix, digits, suffix), nil
}

func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// uniqueInterviewCode draws codes until one is not already assigned.
func uniqueInterviewCode(ctx context.Context, repo storage.RecruitmentRepository) (string, error) {
	for range maxCodeTries {
		code, err := newInterviewCode()
		if err != nil {
			return "", err
		}
		_, err = repo.GetByCode(ctx, code)
		if storage.IsNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not find an unused interview code after %d attempts", maxCodeTries)
}

// newSessionToken returns 32 random bytes, base64url encoded without padding.
func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
