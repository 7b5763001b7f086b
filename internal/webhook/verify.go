package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature checks a Meta X-Hub-Signature-256 header against the raw
// request body. An empty appSecret disables verification, matching
// deployments where the app secret was never configured.
func VerifySignature(appSecret, header string, body []byte) bool {
	if appSecret == "" {
		return true
	}
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	provided := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(provided), []byte(expected))
}
