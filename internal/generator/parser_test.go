package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_StructuredBlocks(t *testing.T) {
	response := `Here is your application:

===FILE:index.html===
<!DOCTYPE html><html></html>
===END===

===FILE:README.md===
# Readme
===END===
`
	files := parseResponse(response)

	require.Len(t, files, 2)
	assert.Equal(t, "<!DOCTYPE html><html></html>", files["index.html"])
	assert.Equal(t, "# Readme", files["README.md"])
}

func TestParseResponse_TrimsNamesAndContent(t *testing.T) {
	response := "===FILE: index.html ===\n\n  <html></html>  \n\n===END==="

	files := parseResponse(response)

	require.Len(t, files, 1)
	assert.Equal(t, "<html></html>", files["index.html"])
}

func TestParseResponse_FallsBackToLineParser(t *testing.T) {
	// Missing the trailing END marker, which defeats the structured pattern.
	response := `===FILE:index.html===
<!DOCTYPE html>
<html><body>hi</body></html>`

	files := parseResponse(response)

	require.Len(t, files, 1)
	assert.Contains(t, files["index.html"], "<body>hi</body>")
}

func TestParseResponseLineByLine_MultipleFiles(t *testing.T) {
	response := `===FILE:a.txt===
alpha
===END===
chatter between blocks
===FILE:b.txt===
beta
gamma
===END===`

	files := parseResponseLineByLine(response)

	require.Len(t, files, 2)
	assert.Equal(t, "alpha", files["a.txt"])
	assert.Equal(t, "beta\ngamma", files["b.txt"])
}

func TestParseResponse_NoMarkersYieldsNothing(t *testing.T) {
	files := parseResponse("the model produced prose instead of files")
	assert.Empty(t, files)
}
