package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix       = "whsec_"
	signatureVersion   = "v1"
	timestampTolerance = 5 * time.Minute
)

// Headers are the delivery headers attached by the webhook sender.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

func (h Headers) complete() bool {
	return strings.TrimSpace(h.ID) != "" && strings.TrimSpace(h.Timestamp) != "" && strings.TrimSpace(h.Signature) != ""
}

// VerifySignature checks a delivery signed with the shared webhook secret.
// The signed content is "<id>.<timestamp>.<body>"; the signature header holds
// space separated "v1,<base64 hmac-sha256>" entries of which one must match.
func VerifySignature(secret string, h Headers, body []byte, now time.Time) error {
	if !h.complete() {
		return fmt.Errorf("%w: missing svix headers", ErrSignatureInvalid)
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return err
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(h.Timestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
	}
	sent := time.Unix(ts, 0)
	if now.Sub(sent) > timestampTolerance {
		return fmt.Errorf("%w: message timestamp too old", ErrSignatureInvalid)
	}
	if sent.Sub(now) > timestampTolerance {
		return fmt.Errorf("%w: message timestamp too new", ErrSignatureInvalid)
	}

	expected := sign(key, h.ID, strings.TrimSpace(h.Timestamp), body)
	for _, entry := range strings.Fields(h.Signature) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != signatureVersion {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature found", ErrSignatureInvalid)
}

// Sign produces a "v1,<sig>" signature header value. It is the counterpart of
// VerifySignature and is used to sign test deliveries.
func Sign(secret, id string, ts time.Time, body []byte) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return signatureVersion + "," + sign(key, id, strconv.FormatInt(ts.Unix(), 10), body), nil
}

func sign(key []byte, id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimSpace(secret), secretPrefix)
	if s == "" {
		return nil, ErrUnconfigured
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: signing secret is not valid base64", ErrUnconfigured)
	}
	return key, nil
}
