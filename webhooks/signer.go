package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goliatone/go-hooks/core"
)

const (
	DefaultSignatureHeader = "X-Hook-Signature"
	DefaultSignaturePrefix = "sha256="
	DefaultSecretField     = "secret"
	DeliveryIDHeader       = "Idempotency-Key"

	EncodingHex    = "hex"
	EncodingBase64 = "base64"
)

// HMACSigner signs delivery bodies with the secret stored in the listener
// config. Listeners without a secret are delivered unsigned.
type HMACSigner struct {
	Header      string
	Prefix      string
	SecretField string
	Encoding    string // hex | base64
}

func NewHMACSigner(header string) HMACSigner {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultSignatureHeader
	}
	return HMACSigner{
		Header:      header,
		Prefix:      DefaultSignaturePrefix,
		SecretField: DefaultSecretField,
		Encoding:    EncodingHex,
	}
}

func (s HMACSigner) Sign(listener core.Listener, body []byte) (map[string]string, error) {
	field := strings.TrimSpace(s.SecretField)
	if field == "" {
		field = DefaultSecretField
	}
	raw, ok := listener.Config[field]
	if !ok || raw == nil {
		return nil, nil
	}
	secret, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("webhooks: listener %s %s must be a string", listener.ID, field)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, nil
	}

	header := strings.TrimSpace(s.Header)
	if header == "" {
		header = DefaultSignatureHeader
	}
	return map[string]string{
		header: s.Prefix + encodeSignature(s.Encoding, computeHMAC(secret, body)),
	}, nil
}

func computeHMAC(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

func encodeSignature(encoding string, sum []byte) string {
	if strings.EqualFold(strings.TrimSpace(encoding), EncodingBase64) {
		return base64.StdEncoding.EncodeToString(sum)
	}
	return hex.EncodeToString(sum)
}

var _ core.RequestSigner = HMACSigner{}
