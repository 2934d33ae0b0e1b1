package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationHTMLEscapes(t *testing.T) {
	body := VerificationHTML("<bob>", "https://example.com/verify?token=a&b")

	assert.Contains(t, body, "&lt;bob&gt;")
	assert.Contains(t, body, `href="https://example.com/verify?token=a&amp;b"`)
}
