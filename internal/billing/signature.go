package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Signature header format: "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<body>">".
// Same scheme the processor documents for all its webhook consumers.

var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

// DefaultTolerance bounds how old a signed timestamp may be before the
// delivery is rejected as a possible replay of a captured request.
const DefaultTolerance = 5 * time.Minute

// VerifySignature authenticates payload against the shared secret. Any
// malformed header, stale timestamp or digest mismatch fails verification;
// an unverified event must never reach the synchronizer.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	var ts int64
	var sig []byte

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			ts = parsed
		case "v1":
			decoded, err := hex.DecodeString(v)
			if err != nil {
				return ErrInvalidSignature
			}
			sig = decoded
		}
	}

	if ts == 0 || len(sig) == 0 {
		return ErrInvalidSignature
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > DefaultTolerance || age < -DefaultTolerance {
		return ErrStaleTimestamp
	}

	expected := ComputeSignature(payload, secret, ts)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// ComputeSignature returns the HMAC-SHA256 digest over "<ts>.<payload>".
func ComputeSignature(payload []byte, secret string, ts int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignatureHeader builds a valid header for a payload.
func SignatureHeader(payload []byte, secret string, now time.Time) string {
	ts := now.Unix()
	sig := ComputeSignature(payload, secret, ts)
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(sig)
}
