package connector

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// SessionRecord is the serialized form of a persisted connection session.
type SessionRecord struct {
	// ConnectorRef names the connector that produced the session.
	ConnectorRef string `json:"connectorRef"`

	// Address is the connected account, hex-encoded.
	Address string `json:"address"`

	// ChainID is the chain the session was established on.
	ChainID int64 `json:"chainId"`

	// WalletType is the detected wallet vendor for the session.
	WalletType string `json:"walletType"`

	// CreatedAt is when the session was persisted.
	CreatedAt time.Time `json:"createdAt"`
}

// EncodeSession converts a SessionRecord to a base64-encoded JSON string, the
// form stored in the session key-value store.
//
// Returns an error if JSON marshaling fails.
func EncodeSession(record SessionRecord) (string, error) {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	return base64.StdEncoding.EncodeToString(recordJSON), nil
}

// DecodeSession converts a base64-encoded JSON string to a SessionRecord.
//
// Returns an error if base64 decoding or JSON unmarshaling fails.
func DecodeSession(encoded string) (SessionRecord, error) {
	var record SessionRecord

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return record, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &record); err != nil {
		return record, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return record, nil
}
