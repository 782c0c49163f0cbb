// go-utils/random.go

package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomURLToken returns nBytes of crypto/rand output, base64url encoded
// without padding. The output length is fixed for a given nBytes.
func RandomURLToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
