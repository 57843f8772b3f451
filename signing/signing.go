// Package signing implements the vendor authentication schemes as pure,
// deterministic functions. Nothing here performs network I/O: every signer
// maps (secret, method, path, params, timestamp) to a signature string, so
// each scheme is testable against fixed vectors.
//
// Builders fail closed: an empty required secret yields an AUTH_FAILED error
// before any request material is produced.
package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/taoxee/scribeflow/errors"
)

// Scheme identifies a vendor signing scheme.
type Scheme string

const (
	// SchemeBearer places a bearer token in the Authorization header.
	SchemeBearer Scheme = "bearer"
	// SchemeHeaderKey places an API key in a named header.
	SchemeHeaderKey Scheme = "header_key"
	// SchemeQueryKey places an API key in a named query parameter.
	SchemeQueryKey Scheme = "query_key"
	// SchemeDatedHMACSHA256 signs a canonical request with a date-scoped
	// derived HMAC-SHA256 key chain.
	SchemeDatedHMACSHA256 Scheme = "dated_hmac_sha256"
	// SchemeSortedHMACSHA1 signs a sorted, url-encoded parameter string
	// with HMAC-SHA1.
	SchemeSortedHMACSHA1 Scheme = "sorted_hmac_sha1"
)

// Bearer returns the Authorization header value for a bearer token.
func Bearer(vendor, token string) (string, error) {
	if token == "" {
		return "", errors.MissingCredential(vendor, "api_key")
	}
	return "Bearer " + token, nil
}

// HeaderKey validates a raw header-carried API key.
func HeaderKey(vendor, field, key string) (string, error) {
	if key == "" {
		return "", errors.MissingCredential(vendor, field)
	}
	return key, nil
}

// QueryKey returns the query parameter pair for a query-carried API key.
func QueryKey(vendor, name, key string) (string, string, error) {
	if key == "" {
		return "", "", errors.MissingCredential(vendor, name)
	}
	return name, key, nil
}

// hmacSHA256 computes a raw HMAC-SHA256 digest.
func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// sha256Hex computes the lowercase hex SHA-256 of data.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DatedHMACSHA256 holds the inputs of the canonical-request scheme used by
// vendors with date-scoped derived signing keys.
type DatedHMACSHA256 struct {
	SecretID  string
	SecretKey string
	Service   string
	Host      string
	Method    string
	Path      string
	Query     string
	Payload   []byte
	// Timestamp is Unix seconds; Date must be the UTC yyyy-mm-dd of Timestamp.
	Timestamp int64
	Date      string
}

// Sign produces the hex signature over the canonical request. The signing key
// is derived as secret -> date -> service -> terminator, so a leaked daily
// signature cannot be replayed outside its date scope.
func (s DatedHMACSHA256) Sign() (string, error) {
	if s.SecretKey == "" {
		return "", errors.MissingCredential(s.Service, "secret_key")
	}

	canonicalHeaders := "content-type:application/json\nhost:" + s.Host + "\n"
	signedHeaders := "content-type;host"
	canonicalRequest := strings.Join([]string{
		s.Method,
		s.Path,
		s.Query,
		canonicalHeaders,
		signedHeaders,
		sha256Hex(s.Payload),
	}, "\n")

	credentialScope := s.Date + "/" + s.Service + "/request"
	stringToSign := strings.Join([]string{
		"HMAC-SHA256",
		formatUnix(s.Timestamp),
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	dateKey := hmacSHA256([]byte("SF"+s.SecretKey), []byte(s.Date))
	serviceKey := hmacSHA256(dateKey, []byte(s.Service))
	signingKey := hmacSHA256(serviceKey, []byte("request"))

	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign))), nil
}

// Authorization assembles the full authorization header for the signed request.
func (s DatedHMACSHA256) Authorization() (string, error) {
	if s.SecretID == "" {
		return "", errors.MissingCredential(s.Service, "secret_id")
	}
	sig, err := s.Sign()
	if err != nil {
		return "", err
	}
	credentialScope := s.Date + "/" + s.Service + "/request"
	return "HMAC-SHA256 Credential=" + s.SecretID + "/" + credentialScope +
		", SignedHeaders=content-type;host, Signature=" + sig, nil
}

// SortedHMACSHA1 signs the sorted, url-encoded parameter string of a request
// with HMAC-SHA1 and returns the base64 signature. Parameter ordering is
// byte-wise by key, so the signature is independent of map iteration order.
func SortedHMACSHA1(vendor, secret, method, path string, params map[string]string) (string, error) {
	if secret == "" {
		return "", errors.MissingCredential(vendor, "access_secret")
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(percentEncode(k))
		sb.WriteByte('=')
		sb.WriteString(percentEncode(params[k]))
	}

	stringToSign := method + "&" + percentEncode(path) + "&" + percentEncode(sb.String())

	h := hmac.New(sha1.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// percentEncode applies RFC 3986 encoding (space as %20, not +).
func percentEncode(s string) string {
	encoded := url.QueryEscape(s)
	encoded = strings.ReplaceAll(encoded, "+", "%20")
	encoded = strings.ReplaceAll(encoded, "*", "%2A")
	encoded = strings.ReplaceAll(encoded, "%7E", "~")
	return encoded
}

func formatUnix(ts int64) string {
	return strconv.FormatInt(ts, 10)
}
