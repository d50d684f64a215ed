package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CaptchaCodeLength is the number of characters in a generated challenge code.
const CaptchaCodeLength = 5

const captchaCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCaptchaCode returns a short human-solvable challenge code drawn
// uniformly from uppercase letters.
func GenerateCaptchaCode() (string, error) {
	code := make([]byte, CaptchaCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(captchaCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate captcha code: %w", err)
		}
		code[i] = captchaCharset[n.Int64()]
	}
	return string(code), nil
}
