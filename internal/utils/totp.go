package utils

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// totpOpts are the validation parameters for all TOTP checks: 6-digit codes,
// 30 second steps, one step of allowed drift in either direction.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateTotpSecret generates a fresh base32 TOTP secret (160 bits) and the
// otpauth:// URI for enrolling an authenticator app
func GenerateTotpSecret(issuer, accountLabel string) (secret, otpauthURI string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountLabel,
		SecretSize:  20,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// VerifyTotpCode checks a 6-digit code against the secret within the drift window
func VerifyTotpCode(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totpOpts)
	return err == nil && ok
}

// QRCodeDataURL renders the otpauth URI as a PNG data URL for enrollment UIs
func QRCodeDataURL(otpauthURI string) (string, error) {
	png, err := qrcode.Encode(otpauthURI, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
