// Package markdown extracts code blocks from chat messages and renders them for export.
package markdown

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code block of a message.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// ExtractCodeBlocks returns the fenced code blocks of content in document order.
func ExtractCodeBlocks(content string) []CodeBlock {
	source := []byte(content)
	doc := md.Parser().Parse(text.NewReader(source))

	blocks := []CodeBlock{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var code bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			code.Write(line.Value(source))
		}
		blocks = append(blocks, CodeBlock{
			Language: strings.ToLower(string(fenced.Language(source))),
			Code:     strings.TrimRight(code.String(), "\n"),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

// RenderHTML renders content as HTML. Raw HTML in content is omitted.
func RenderHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return buf.String(), nil
}
