package encryption

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CurrentEnvelopeVersion is written on every new envelope. Envelopes stored
// before the field existed decode with Version 0 and are read the same way.
const CurrentEnvelopeVersion = 1

// Envelope is the JSON form of an encrypted payload as stored in the
// conversation content column.
type Envelope struct {
	Version int    `json:"version,omitempty"`
	Data    string `json:"data"`
	IV      string `json:"iv"`
}

// Marshal renders the envelope as the text stored in the database.
func (e Envelope) Marshal() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StoredPayload is the decoded form of a content column: either text that was
// never encrypted or an envelope.
type StoredPayload interface {
	storedPayload()
}

// PlaintextLegacy is content written before encryption was introduced.
type PlaintextLegacy struct {
	Text string
}

// EnvelopeV1 is an AES-GCM envelope, versioned or not.
type EnvelopeV1 struct {
	Envelope
}

func (PlaintextLegacy) storedPayload() {}
func (EnvelopeV1) storedPayload()      {}

// ParseStoredPayload classifies stored text. Only a JSON object carrying
// string "data" and "iv" members is an envelope; everything else is legacy
// plaintext and is returned verbatim.
func ParseStoredPayload(stored string) (StoredPayload, error) {
	trimmed := strings.TrimSpace(stored)
	if !strings.HasPrefix(trimmed, "{") {
		return PlaintextLegacy{Text: stored}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return PlaintextLegacy{Text: stored}, nil
	}

	var env Envelope
	if !stringField(fields, "data", &env.Data) || !stringField(fields, "iv", &env.IV) {
		return PlaintextLegacy{Text: stored}, nil
	}

	if raw, ok := fields["version"]; ok {
		if err := json.Unmarshal(raw, &env.Version); err != nil {
			return nil, fmt.Errorf("%w: version: %v", ErrMalformedEnvelope, err)
		}
		if env.Version != CurrentEnvelopeVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
		}
	}
	return EnvelopeV1{Envelope: env}, nil
}

func stringField(fields map[string]json.RawMessage, name string, dst *string) bool {
	raw, ok := fields[name]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil && *dst != ""
}
