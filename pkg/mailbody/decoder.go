package mailbody

import (
	"encoding/base64"
	"log"
	"strings"
)

// maxDepth bounds recursion over nested multipart trees. Real messages rarely
// nest more than 4-5 levels; anything deeper is treated as empty.
const maxDepth = 16

// Decode turns a message payload tree into (htmlText, plainText). text/plain
// parts win for plainText; when only HTML exists, plainText is derived by
// stripping markup. Malformed base64 never fails the whole message - the
// offending part contributes an empty string.
func Decode(root *Part) (string, string) {
	if root == nil {
		return "", ""
	}

	var htmlBody, plainBody string

	// Single-part message: the payload carries the body directly.
	if root.Body != "" {
		text := decodeBase64URL(root.Body)
		if strings.HasPrefix(root.MimeType, "text/plain") {
			plainBody = text
		} else {
			htmlBody = text
			plainBody = StripHTML(text)
		}
		return Clean(htmlBody), Clean(plainBody)
	}

	var findBody func(parts []*Part, depth int)
	findBody = func(parts []*Part, depth int) {
		if depth > maxDepth {
			return
		}
		for _, part := range parts {
			switch {
			case strings.HasPrefix(part.MimeType, "text/plain") && part.Body != "":
				plainBody += decodeBase64URL(part.Body)
			case strings.HasPrefix(part.MimeType, "text/html") && part.Body != "":
				htmlBody += decodeBase64URL(part.Body)
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts, depth+1)
			}
		}
	}
	findBody(root.Parts, 0)

	// Nothing matched the usual text parts: fall back to collecting any
	// decodable leaf in the whole tree.
	if plainBody == "" && htmlBody == "" {
		var collect func(p *Part, depth int)
		collect = func(p *Part, depth int) {
			if p == nil || depth > maxDepth {
				return
			}
			if p.Body != "" {
				plainBody += decodeBase64URL(p.Body)
			}
			for _, child := range p.Parts {
				collect(child, depth+1)
			}
		}
		collect(root, 0)
	}

	if plainBody == "" && htmlBody != "" {
		plainBody = StripHTML(htmlBody)
	}

	return Clean(htmlBody), Clean(plainBody)
}

// decodeBase64URL decodes Gmail-style base64url data. Url-safe characters are
// remapped to the standard alphabet and missing padding is restored before
// decoding. Returns "" on malformed input.
func decodeBase64URL(data string) string {
	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(data)
	if pad := len(normalized) % 4; pad != 0 {
		normalized += strings.Repeat("=", 4-pad)
	}

	decoded, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		log.Printf("[MailBody] Failed to decode part body: %v", err)
		return ""
	}
	return string(decoded)
}
