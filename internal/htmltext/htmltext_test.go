package htmltext

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTextStructure(t *testing.T) {
	t.Parallel()

	got := ToText(`<h2>Release   notes</h2>
<p>New <a href="https://example.com">model</a> shipped.<script>alert(1)</script></p>
<ul><li>faster</li><li>cheaper</li></ul>
<p>Done &amp; dusted.</p>`)

	assert.Equal(t, "## Release notes\n\nNew model shipped.\n\n- faster\n- cheaper\n\nDone & dusted.", got)
}

func TestToTextPlain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "just text", ToText("  just\n text "))
	assert.Equal(t, "", ToText("   "))
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a < b and c", StripTags("<b>a &lt; b</b> and <i>c</i>"))
}

func TestFromSelection(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<main><p>one</p><br><p>two</p></main><p>outside</p>`))
	require.NoError(t, err)

	assert.Equal(t, "one\n\ntwo", FromSelection(doc.Find("main")))
	assert.Equal(t, "", FromSelection(nil))
}
