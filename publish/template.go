package publish

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/notepub/seal"
)

// descriptionLimit is the description length cap in runes, ellipsis included.
const descriptionLimit = 200

var stripTags = bluemonday.StrictPolicy()

// describe derives the plain-publish description from paragraph text: tags
// stripped, truncated to descriptionLimit runes with a trailing ellipsis.
func describe(paragraphText string) string {
	clean := html.UnescapeString(stripTags.Sanitize(paragraphText))
	r := []rune(clean)
	if len(r) <= descriptionLimit {
		return clean
	}
	return string(r[:descriptionLimit-1]) + "…"
}

// payload is what gets encrypted for an end-to-end-encrypted publish. The
// title travels inside the ciphertext, never in the clear template.
type payload struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

// gcmNonceLen is the AES-GCM nonce size; EncodeSealed relies on it being
// fixed so the envelope needs no length prefix.
const gcmNonceLen = 12

// EncodeSealed packs an encrypted payload into the template content field:
// base64 over nonce followed by ciphertext.
func EncodeSealed(s seal.Sealed) string {
	buf := make([]byte, 0, len(s.IV)+len(s.Ciphertext))
	buf = append(buf, s.IV...)
	buf = append(buf, s.Ciphertext...)
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeSealed splits an encoded envelope back into ciphertext and nonce.
func DecodeSealed(content string) (ciphertext, iv []byte, err error) {
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, nil, fmt.Errorf("publish: decode envelope: %w", err)
	}
	if len(raw) < gcmNonceLen {
		return nil, nil, fmt.Errorf("publish: envelope shorter than nonce")
	}
	return raw[gcmNonceLen:], raw[:gcmNonceLen], nil
}

// sealPayload encrypts {content, title} with the prior key when one survives
// from an earlier publish, minting a fresh key otherwise. A stored fragment
// that is not valid key material falls back to a fresh mint rather than
// failing the run.
func sealPayload(content, title, priorKey string) (seal.Sealed, error) {
	raw, err := json.Marshal(payload{Content: content, Title: title})
	if err != nil {
		return seal.Sealed{}, fmt.Errorf("publish: marshal payload: %w", err)
	}
	sealed, err := seal.Encrypt(raw, priorKey)
	if errors.Is(err, seal.ErrBadKey) && priorKey != "" {
		sealed, err = seal.Encrypt(raw, "")
	}
	if err != nil {
		return seal.Sealed{}, fmt.Errorf("publish: encrypt: %w", err)
	}
	return sealed, nil
}
