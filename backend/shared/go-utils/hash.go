// go-utils/hash.go

package utils

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashToken is the at-rest form of any bearer token we hand out in links.
func HashToken(raw string) string {
	hasher := sha256.New()
	hasher.Write([]byte(raw))
	return base64.URLEncoding.EncodeToString(hasher.Sum(nil))
}
