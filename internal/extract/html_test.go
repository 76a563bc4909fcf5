package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLText_Paragraphs(t *testing.T) {
	doc := `<html><head><title>Draft</title><style>p{color:red}</style></head>
<body>
<h2>1. Payment</h2>
<p>The Customer shall pay
   all invoices within <b>30 days</b>.</p>
<script>var x = "shall not appear";</script>
<ul><li>First item</li><li>Second item</li></ul>
<p>Line one<br>Line two</p>
</body></html>`

	text, err := HTMLText(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "## 1. Payment\n\n"+
		"The Customer shall pay all invoices within 30 days .\n\n"+
		"First item\n\nSecond item\n\n"+
		"Line one\n\nLine two\n", text)
	assert.NotContains(t, text, "shall not appear")
	assert.NotContains(t, text, "Draft")
}

func TestHTMLText_Empty(t *testing.T) {
	text, err := HTMLText(strings.NewReader("<html><body><script>x()</script></body></html>"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestHTMLText_FeedsEntityExtraction(t *testing.T) {
	text, err := HTMLText(strings.NewReader(`<p>The fee is <span>$200,000</span> per year.</p>`))
	require.NoError(t, err)

	set, err := newExtractor(t).Extract(text)
	require.NoError(t, err)
	_, ok := findEntity(set, "MONEY", "$200,000")
	assert.True(t, ok)
}
