package mailbody

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecodeSinglePartPlain(t *testing.T) {
	root := &Part{
		MimeType: "text/plain",
		Body:     b64("You paid $42.00 to Coffee Shop"),
	}

	html, plain := Decode(root)
	assert.Empty(t, html)
	assert.Equal(t, "You paid $42.00 to Coffee Shop", plain)
}

func TestDecodeSinglePartHTML(t *testing.T) {
	root := &Part{
		MimeType: "text/html",
		Body:     b64("<html><body><p>Receipt for <b>$10</b></p></body></html>"),
	}

	html, plain := Decode(root)
	assert.Contains(t, html, "<p>")
	assert.NotContains(t, plain, "<")
	assert.Contains(t, plain, "Receipt for $10")
}

func TestDecodeMultipartPrefersPlainText(t *testing.T) {
	root := &Part{
		MimeType: "multipart/alternative",
		Parts: []*Part{
			{MimeType: "text/plain", Body: b64("plain version")},
			{MimeType: "text/html", Body: b64("<p>html version</p>")},
		},
	}

	html, plain := Decode(root)
	assert.Equal(t, "plain version", plain)
	assert.Contains(t, html, "html version")
}

func TestDecodeNestedMultipart(t *testing.T) {
	root := &Part{
		MimeType: "multipart/mixed",
		Parts: []*Part{
			{
				MimeType: "multipart/alternative",
				Parts: []*Part{
					{MimeType: "text/plain", Body: b64("nested plain body")},
				},
			},
			{MimeType: "application/pdf", Filename: "invoice.pdf"},
		},
	}

	_, plain := Decode(root)
	assert.Equal(t, "nested plain body", plain)
}

func TestDecodeMalformedBase64YieldsEmpty(t *testing.T) {
	root := &Part{
		MimeType: "text/plain",
		Body:     "%%%not base64%%%",
	}

	html, plain := Decode(root)
	assert.Empty(t, html)
	assert.Empty(t, plain)
}

func TestDecodeHTMLOnlyDerivesPlainText(t *testing.T) {
	root := &Part{
		MimeType: "multipart/alternative",
		Parts: []*Part{
			{MimeType: "text/html", Body: b64("<div>Order confirmed</div>")},
		},
	}

	_, plain := Decode(root)
	assert.Equal(t, "Order confirmed", plain)
}

func TestDecodeNilRoot(t *testing.T) {
	html, plain := Decode(nil)
	assert.Empty(t, html)
	assert.Empty(t, plain)
}

func TestCleanStripsNoise(t *testing.T) {
	in := "Hello​ world [image] see https://example.com/page now"
	out := Clean(in)
	assert.Equal(t, "Hello world see now", out)
}

func TestCleanCollapsesBlankLines(t *testing.T) {
	in := "line one\n\n\n\n\nline two"
	out := Clean(in)
	assert.Equal(t, "line one\n\nline two", out)
}

func TestCleanIdempotent(t *testing.T) {
	in := "  Total:   $12.34  \n\n\n\nThanks  "
	once := Clean(in)
	assert.Equal(t, once, Clean(once))
}

func TestStripHTMLEntities(t *testing.T) {
	out := StripHTML("<p>Tom &amp; Jerry&nbsp;&#39;s</p>")
	assert.Contains(t, out, "Tom & Jerry 's")
}

func TestCollectAttachments(t *testing.T) {
	root := &Part{
		MimeType: "multipart/mixed",
		Parts: []*Part{
			{MimeType: "text/plain", Body: b64("body")},
			{MimeType: "application/pdf", Filename: "receipt.pdf", Size: 1024},
			{
				MimeType: "multipart/related",
				Parts: []*Part{
					{MimeType: "image/png", Filename: "logo.png", Size: 256},
				},
			},
		},
	}

	attachments := CollectAttachments(root)
	assert.Len(t, attachments, 2)
	assert.Equal(t, "receipt.pdf", attachments[0].Filename)
	assert.Equal(t, "logo.png", attachments[1].Filename)
}
