package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// backupCodeAlphabet avoids ambiguous characters (0/O, 1/I)
const backupCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	// BackupCodeLength is the length of a single backup code
	BackupCodeLength = 8
	// BackupCodeCount is the number of codes in a freshly generated batch
	BackupCodeCount = 8
)

// GenerateBackupCodes generates a batch of unique one-time backup codes.
// The raw codes are shown to the user exactly once; only hashes are stored.
func GenerateBackupCodes(count int) ([]string, error) {
	if count <= 0 {
		count = BackupCodeCount
	}

	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)

	for len(codes) < count {
		code, err := randomBackupCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

func randomBackupCode() (string, error) {
	var sb strings.Builder
	sb.Grow(BackupCodeLength)

	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < BackupCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate backup code: %w", err)
		}
		sb.WriteByte(backupCodeAlphabet[n.Int64()])
	}

	return sb.String(), nil
}

// NormalizeBackupCode canonicalizes user input before hashing: uppercase with
// all whitespace stripped
func NormalizeBackupCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// HashBackupCode returns the stored form of a backup code
func HashBackupCode(code string) string {
	return HashToken(NormalizeBackupCode(code))
}
