package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCodeBlocks(t *testing.T) {
	content := "Here you go:\n\n```Python\ndef add(a, b):\n    return a + b\n```\n\nAnd in JS:\n\n~~~js\nconst add = (a, b) => a + b;\n~~~\n\n```\nplain\n```\n"

	blocks := ExtractCodeBlocks(content)
	require.Len(t, blocks, 3)
	assert.Equal(t, CodeBlock{Language: "python", Code: "def add(a, b):\n    return a + b"}, blocks[0])
	assert.Equal(t, CodeBlock{Language: "js", Code: "const add = (a, b) => a + b;"}, blocks[1])
	assert.Equal(t, CodeBlock{Language: "", Code: "plain"}, blocks[2])
}

func TestExtractCodeBlocks_IgnoresIndentedAndInline(t *testing.T) {
	content := "Use `fmt.Println` here.\n\n    indented code\n"
	assert.Empty(t, ExtractCodeBlocks(content))
}

func TestExtractCodeBlocks_Nested(t *testing.T) {
	content := "- item\n\n  ```go\n  fmt.Println(1)\n  ```\n"
	blocks := ExtractCodeBlocks(content)
	require.Len(t, blocks, 1)
	assert.Equal(t, "go", blocks[0].Language)
	assert.Equal(t, "fmt.Println(1)", blocks[0].Code)
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("# Title\n\n**bold** <script>alert(1)</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="title">Title</h1>`)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}
