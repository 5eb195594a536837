package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// GenerateState creates an OAuth state string carrying metadata (e.g. the
// "login" or "register" flow), signed so the callback can trust it.
func GenerateState(data map[string]string, secret []byte) (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)

	payloadBytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state data: %w", err)
	}
	payloadPart := base64.RawURLEncoding.EncodeToString(payloadBytes)

	// Final format: randomPart.payloadPart.signature
	unsigned := randomPart + "." + payloadPart
	return unsigned + "." + signState(unsigned, secret), nil
}

// DecodeState verifies the signature and decodes the metadata.
func DecodeState(state string, secret []byte) (map[string]string, error) {
	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid state format")
	}

	expected := signState(parts[0]+"."+parts[1], secret)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid state signature")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode state payload: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(payloadBytes, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state JSON: %w", err)
	}
	return data, nil
}

func signState(unsigned string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(unsigned))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
