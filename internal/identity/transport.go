package identity

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Encode renders an identity as a URL-safe base64 token.
func Encode(id VideoIdentity) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.value))
}

// Decode turns a transport token back into a raw path. Tokens minted by older
// clients use the standard alphabet with padding, so every base64 variant is accepted.
// The result is a raw path and must go through Normalize before lookup.
func Decode(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("decode video token: empty")
	}

	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		if b, err := enc.DecodeString(token); err == nil && len(b) > 0 {
			return string(b), nil
		}
	}
	return "", fmt.Errorf("decode video token %q: not base64", token)
}

// Resolve decodes a transport token and normalizes the path it carries.
func (n Normalizer) Resolve(token string) (VideoIdentity, error) {
	raw, err := Decode(token)
	if err != nil {
		return VideoIdentity{}, &PathResolutionError{Path: token, Err: err}
	}
	return n.Normalize(raw)
}
