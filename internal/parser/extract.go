package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// minCells is the fewest <td> cells a data row may carry: date, unit value,
// cumulative value and growth. Status columns default to empty.
const minCells = 4

// TableExtractor turns the embedded HTML fragment into raw cell text, one
// slice per data row. Header rows and rows too short to be data are omitted.
type TableExtractor interface {
	Name() string
	Rows(content string) [][]string
}

// extractors are tried in order; the first one returning rows wins.
var extractors = []TableExtractor{
	StructuralExtractor{},
	PatternExtractor{},
}

func extractRows(content string) ([][]string, string) {
	for _, e := range extractors {
		if rows := e.Rows(content); len(rows) > 0 {
			return rows, e.Name()
		}
	}
	return nil, ""
}

// StructuralExtractor walks the parsed DOM and reads each <tr>'s <td> cells.
type StructuralExtractor struct{}

func (StructuralExtractor) Name() string { return "structural" }

func (StructuralExtractor) Rows(content string) [][]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var rows [][]string
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < minCells {
			return
		}
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, cleanCell(td.Text()))
		})
		rows = append(rows, cells)
	})
	return rows
}

var (
	rowStartPattern = regexp.MustCompile(`(?i)<tr[^>]*>`)
	cellPattern     = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
)

// PatternExtractor recovers cells with regular expressions. It tolerates
// markup the DOM parser discards, such as rows outside a <table> or
// unclosed <tr> tags.
type PatternExtractor struct{}

func (PatternExtractor) Name() string { return "pattern" }

func (PatternExtractor) Rows(content string) [][]string {
	chunks := rowStartPattern.Split(content, -1)
	if len(chunks) < 2 {
		return nil
	}

	var rows [][]string
	for _, chunk := range chunks[1:] {
		matches := cellPattern.FindAllStringSubmatch(chunk, -1)
		if len(matches) < minCells {
			continue
		}
		cells := make([]string, 0, len(matches))
		for _, m := range matches {
			text := tagPattern.ReplaceAllString(m[1], "")
			cells = append(cells, cleanCell(html.UnescapeString(text)))
		}
		rows = append(rows, cells)
	}
	return rows
}

func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}
