package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Webhook signature errors. ErrSignatureMismatch is security-relevant and is
// logged distinctly by callers; it must never be followed by a state change.
var (
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	ErrSignatureExpired  = errors.New("webhook signature timestamp outside tolerance")
)

// SignatureTolerance bounds how stale a signed webhook timestamp may be.
const SignatureTolerance = 5 * time.Minute

// VerifySignature checks a gateway webhook signature header of the form
// "t=<unix>,v1=<hex>" where the hex value is HMAC-SHA256 over
// "<t>.<payload>" keyed with the shared webhook secret. The comparison is
// constant-time. Verification happens on the raw payload bytes, before any
// parsing.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	ts, sigs, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > SignatureTolerance || age < -SignatureTolerance {
		return ErrSignatureExpired
	}

	expected := computeSignature(payload, ts, secret)
	for _, sig := range sigs {
		got, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if subtle.ConstantTimeCompare(expected, got) == 1 {
			return nil
		}
	}
	return ErrSignatureMismatch
}

// Sign produces a signature header for the given payload and timestamp.
// Used by tests and local tooling to fabricate verifiable deliveries.
func Sign(payload []byte, ts time.Time, secret string) string {
	mac := computeSignature(payload, ts.Unix(), secret)
	return "t=" + strconv.FormatInt(ts.Unix(), 10) + ",v1=" + hex.EncodeToString(mac)
}

func computeSignature(payload []byte, ts int64, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (ts int64, sigs []string, err error) {
	if header == "" {
		return 0, nil, ErrSignatureMismatch
	}
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, ErrSignatureMismatch
			}
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return 0, nil, ErrSignatureMismatch
	}
	return ts, sigs, nil
}
