package webhooks

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Verifier interface {
	Verify(headers map[string]string, body []byte) error
}

type DeliveryIDExtractor func(headers map[string]string) (string, error)

// ReceiverTemplate bundles what a listener endpoint needs to accept hook
// deliveries.
type ReceiverTemplate struct {
	Verifier  Verifier
	Extractor DeliveryIDExtractor
}

// NewReceiverTemplate verifies deliveries signed by NewHMACSigner(header)
// with secret.
func NewReceiverTemplate(header string, secret string) ReceiverTemplate {
	signer := NewHMACSigner(header)
	return ReceiverTemplate{
		Verifier: HeaderHMACVerifier{
			Header:   signer.Header,
			Prefix:   signer.Prefix,
			Secret:   strings.TrimSpace(secret),
			Encoding: signer.Encoding,
		},
		Extractor: HeaderDeliveryIDExtractor(DeliveryIDHeader, "X-Request-Id"),
	}
}

type HeaderHMACVerifier struct {
	Header   string
	Prefix   string
	Secret   string
	Encoding string // hex | base64
}

func (v HeaderHMACVerifier) Verify(headers map[string]string, body []byte) error {
	header := strings.TrimSpace(headerValue(headers, v.Header))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", strings.TrimSpace(v.Header))
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}
	signature := strings.TrimPrefix(header, strings.TrimSpace(v.Prefix))
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("webhooks: signature value is required")
	}

	expected := computeHMAC(secret, body)

	var decoded []byte
	var err error
	switch strings.ToLower(strings.TrimSpace(v.Encoding)) {
	case EncodingBase64:
		decoded, err = base64.StdEncoding.DecodeString(signature)
		if err != nil {
			return fmt.Errorf("webhooks: decode base64 signature: %w", err)
		}
	default:
		decoded, err = hex.DecodeString(signature)
		if err != nil {
			return fmt.Errorf("webhooks: decode hex signature: %w", err)
		}
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

func HeaderDeliveryIDExtractor(headers ...string) DeliveryIDExtractor {
	keys := append([]string(nil), headers...)
	return func(values map[string]string) (string, error) {
		for _, key := range keys {
			if value := strings.TrimSpace(headerValue(values, key)); value != "" {
				return value, nil
			}
		}
		return "", fmt.Errorf("webhooks: delivery id is required for dedupe")
	}
}

// VerifyRequest reads at most maxBody bytes of r's body, verifies them and
// leaves the body readable again for the next handler.
func (t ReceiverTemplate) VerifyRequest(r *http.Request, maxBody int64) (deliveryID string, body []byte, err error) {
	if t.Verifier == nil {
		return "", nil, fmt.Errorf("webhooks: verifier is required")
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	body, err = io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return "", nil, fmt.Errorf("webhooks: read body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	headers := make(map[string]string, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}
	if err := t.Verifier.Verify(headers, body); err != nil {
		return "", nil, err
	}
	if t.Extractor != nil {
		deliveryID, err = t.Extractor(headers)
		if err != nil {
			return "", nil, err
		}
	}
	return deliveryID, body, nil
}

func headerValue(headers map[string]string, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if value, ok := headers[key]; ok {
		return value
	}
	for candidate, value := range headers {
		if strings.EqualFold(candidate, key) {
			return value
		}
	}
	return ""
}
