package delivery

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
)

// OTPLength is the number of digits in a handover code
const OTPLength = 6

// GenerateOTP returns a uniformly random numeric code, zero-padded to
// OTPLength digits. Uses crypto/rand; never math/rand.
func GenerateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < OTPLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n), nil
}

// GenerateQRToken returns a 128-bit random token as lowercase hex
func GenerateQRToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate qr token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashQRToken returns the SHA-256 digest of a QR token as lowercase
// hex. Unlike the bcrypt hash of the numeric code the digest has to be
// deterministic so a scanned token can be resolved by database lookup;
// the token's 128 bits of entropy make offline guessing moot.
func HashQRToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// QRPayload is the document embedded in a handover QR image. The token
// is the only secret; the order id and issue time let the scanner app
// show context before submitting.
type QRPayload struct {
	OrderID  uuid.UUID `json:"order_id"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// Encode serializes the payload to URL-safe base64 for embedding in a
// QR image
func (p QRPayload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeQRPayload parses a scanned payload. Malformed input maps to the
// generic verification failure so scanners cannot probe the format.
func DecodeQRPayload(encoded string) (*QRPayload, error) {
	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, shared.ErrInvalidCode
	}
	var payload QRPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, shared.ErrInvalidCode
	}
	if payload.OrderID == uuid.Nil || payload.Token == "" {
		return nil, shared.ErrInvalidCode
	}
	return &payload, nil
}
