package chunker

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// codeLines возвращает номера строк (с нуля), лежащих внутри блоков кода.
// Такие строки не считаются заголовками, даже если начинаются с "## ".
// Незакрытый fence (по CommonMark он тянется до конца файла) не учитывается.
func codeLines(src []byte) map[int]struct{} {
	lineStarts := []int{0}
	for i, b := range src {
		if b == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	lineOf := func(offset int) int {
		return sort.SearchInts(lineStarts, offset+1) - 1
	}
	lineText := func(n int) string {
		if n < 0 || n >= len(lineStarts) {
			return ""
		}
		end := len(src)
		if n+1 < len(lineStarts) {
			end = lineStarts[n+1] - 1
		}
		return string(src[lineStarts[n]:end])
	}

	out := make(map[int]struct{})
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			if lines.Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			first := lineOf(lines.At(0).Start)
			last := lineOf(lines.At(lines.Len() - 1).Start)
			if _, fenced := n.(*ast.FencedCodeBlock); fenced && !closesFence(lineText(first-1), lineText(last+1)) {
				return ast.WalkSkipChildren, nil
			}
			for i := first; i <= last; i++ {
				out[i] = struct{}{}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// closesFence: closing - строка из того же символа (` или ~), не короче
// открывающей последовательности, без текста после неё.
func closesFence(opening, closing string) bool {
	opening = strings.TrimLeft(opening, " \t>")
	closing = strings.TrimLeft(closing, " \t>")
	if opening == "" || (opening[0] != '`' && opening[0] != '~') {
		return false
	}
	char := opening[0]
	width := len(opening) - len(strings.TrimLeft(opening, string(char)))

	rest := strings.TrimLeft(closing, string(char))
	return len(closing)-len(rest) >= width && strings.TrimSpace(rest) == ""
}
