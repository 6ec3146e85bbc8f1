// Package table rewrites GFM markdown tables into space-aligned monospace
// blocks so Discord renders them legibly instead of mangling raw pipes.
package table

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

// Normalize walks content and replaces every GFM table with a fenced
// monospace block of space-padded columns. Non-table content passes
// through unchanged.
func Normalize(content string) string {
	src := []byte(content)
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader, parser.WithContext(parser.NewContext()))

	var out strings.Builder
	lastEnd := 0

	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if tbl, ok := c.(*east.Table); ok {
				seg := tableSegment(tbl, src)
				if seg.start >= lastEnd {
					out.Write(src[lastEnd:seg.start])
					out.WriteString(renderTable(tbl, src))
					lastEnd = seg.end
				}
				continue
			}
			walk(c)
		}
	}
	walk(doc)
	out.Write(src[lastEnd:])
	return out.String()
}

type span struct{ start, end int }

func tableSegment(tbl *east.Table, src []byte) span {
	start := -1
	end := -1
	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				l := lines.At(i)
				if start == -1 || l.Start < start {
					start = l.Start
				}
				if l.Stop > end {
					end = l.Stop
				}
			}
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			visit(c)
		}
	}
	visit(tbl)
	if start == -1 {
		return span{0, 0}
	}
	// Extend end to include trailing newline so we don't duplicate it.
	if end < len(src) && src[end] == '\n' {
		end++
	}
	return span{start, end}
}

func renderTable(tbl *east.Table, src []byte) string {
	var rows [][]string
	widths := []int{}

	collectRow := func(row ast.Node) []string {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tc, ok := cell.(*east.TableCell)
			if !ok {
				continue
			}
			cells = append(cells, cellText(tc, src))
		}
		return cells
	}

	for c := tbl.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *east.TableHeader:
			row := collectRow(n)
			rows = append(rows, row)
		case *east.TableRow:
			row := collectRow(n)
			rows = append(rows, row)
		}
	}

	for _, row := range rows {
		for i, cell := range row {
			for len(widths) <= i {
				widths = append(widths, 0)
			}
			if l := len([]rune(cell)); l > widths[i] {
				widths[i] = l
			}
		}
	}

	var b strings.Builder
	b.WriteString("```\n")
	for ri, row := range rows {
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(padRight(cell, widths[i]))
		}
		b.WriteString("\n")
		if ri == 0 {
			for i, w := range widths {
				if i > 0 {
					b.WriteString(" ")
				}
				b.WriteString(strings.Repeat("-", w))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n")
	return b.String()
}

func padRight(s string, width int) string {
	l := len([]rune(s))
	if l >= width {
		return s
	}
	return s + strings.Repeat(" ", width-l)
}

// cellText joins a table cell's inline content into plain text, stripping
// emphasis/codespan/strikethrough markers and replacing links/images with
// their destination URL.
func cellText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteString(" ")
			}
		case *ast.CodeSpan:
			for c := v.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					b.Write(t.Segment.Value(src))
				}
			}
		case *ast.Link:
			b.Write(v.Destination)
		case *ast.AutoLink:
			b.Write(v.URL(src))
		case *ast.Image:
			b.Write(v.Destination)
		default:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c)
	}
	return strings.TrimSpace(b.String())
}
