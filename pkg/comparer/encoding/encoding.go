// Package encoding detects character encodings, converts file content to
// UTF-8 for diffing, and classifies content as text or binary.
package encoding

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// sniffLen bounds the bytes handed to MIME detection.
	sniffLen = 512
	// checkLen bounds the bytes scanned for null bytes.
	checkLen = 1024
	// nullThreshold is the null byte ratio above which content counts as binary.
	nullThreshold = 0.15
)

// Handler detects character encodings, converts content to UTF-8, and
// classifies content as text or binary.
type Handler interface {
	// DetectAndDecode attempts to detect the encoding of content and convert
	// it to UTF-8. It returns the UTF-8 bytes, the detected encoding name,
	// whether detection was certain, and any conversion error. Content that
	// is already valid UTF-8 is returned as is. When detection is uncertain
	// and a fallback encoding is configured, the fallback is applied instead.
	DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certain bool, err error)

	// IsBinary reports whether content looks like binary data, combining
	// MIME sniffing of the first 512 bytes with a null byte ratio check over
	// the first 1024 bytes.
	IsBinary(content []byte) bool
}

// charsetHandler implements Handler on top of x/net/html/charset for
// decoding and mimetype sniffing for the text/binary split.
type charsetHandler struct {
	defaultEncoding string
}

// NewHandler returns a Handler that falls back to defaultEncoding when
// detection is uncertain. An empty defaultEncoding keeps the detector's own
// guess.
func NewHandler(defaultEncoding string) Handler {
	return &charsetHandler{defaultEncoding: defaultEncoding}
}

func (h *charsetHandler) DetectAndDecode(content []byte) ([]byte, string, bool, error) {
	if utf8.Valid(content) {
		return stripBOM(content), "utf-8", true, nil
	}

	enc, name, certain := charset.DetermineEncoding(content, "")

	if !certain && h.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.defaultEncoding); fallback != nil {
			enc = fallback
			name = fallbackName
			certain = true
		}
	}

	if enc == nil {
		if name == "" {
			name = "utf-8"
		}
		return stripBOM(content), name, certain, nil
	}

	utf8Content, _, err := transform.Bytes(enc.NewDecoder(), content)
	if err != nil {
		if name == "" {
			name = "unknown"
		}
		return content, name, certain, fmt.Errorf("failed to convert from %q: %w", name, err)
	}
	if name == "" {
		name = "unknown"
	}
	return stripBOM(utf8Content), name, certain, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM drops a leading byte order mark so it never shows up as a
// phantom first-column change in diffs.
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, utf8BOM)
}

func (h *charsetHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	sniff := content
	if len(sniff) > sniffLen {
		sniff = sniff[:sniffLen]
	}
	detected := mimetype.Detect(sniff)

	text := false
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			text = true
			break
		}
	}
	// An octet-stream verdict means nothing matched, so the null check
	// below still gets a say. Any other non-text type is conclusive.
	if !text && !detected.Is("application/octet-stream") {
		return true
	}

	// UTF-16 text is null-heavy on purpose; the decoder handles it.
	if _, params, err := mime.ParseMediaType(detected.String()); err == nil {
		if strings.HasPrefix(params["charset"], "utf-16") {
			return false
		}
	}

	limit := len(content)
	if limit > checkLen {
		limit = checkLen
	}
	nulls := bytes.Count(content[:limit], []byte{0x00})
	return float64(nulls)/float64(limit) > nullThreshold
}
