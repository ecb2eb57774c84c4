package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/net/html"
)

// Field aliases seen across versions of the endpoint.
var (
	recordFields = []string{"records", "totalRecords", "all_records", "total"}
	pageFields   = []string{"pages", "allPages", "all_pages"}
)

// payload is the shape-independent content of a response: the embedded
// HTML table plus whatever totals the source reported.
type payload struct {
	content    string
	records    int
	hasRecords bool
	pages      int
	hasPages   bool
}

// decoder recognizes one response shape.
type decoder func(body string) (payload, bool)

// decoders are tried in order; the first match wins.
var decoders = []decoder{
	decodeEnvelope,
	decodeScriptVar,
}

func decode(body string) (payload, bool) {
	for _, d := range decoders {
		if p, ok := d(body); ok {
			p.content = unescapeContent(p.content)
			return p, true
		}
	}
	return payload{}, false
}

// decodeEnvelope handles a JSON object carrying a "content" HTML fragment.
func decodeEnvelope(body string) (payload, bool) {
	var doc interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &doc); err != nil {
		return payload{}, false
	}
	if _, isObject := doc.(map[string]interface{}); !isObject {
		return payload{}, false
	}

	raw, err := jsonpath.Get("$.content", doc)
	if err != nil {
		return payload{}, false
	}
	content, ok := raw.(string)
	if !ok {
		return payload{}, false
	}

	p := payload{content: content}
	p.records, p.hasRecords = lookupCount(doc, recordFields)
	p.pages, p.hasPages = lookupCount(doc, pageFields)
	return p, true
}

func lookupCount(doc interface{}, fields []string) (int, bool) {
	for _, f := range fields {
		v, err := jsonpath.Get("$."+f, doc)
		if err != nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			if n >= 0 && n == float64(int(n)) {
				return int(n), true
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && i >= 0 {
				return i, true
			}
		}
	}
	return 0, false
}

var (
	scriptVarPattern = regexp.MustCompile(`(?s)^\s*var\s+[A-Za-z_$][\w$]*\s*=\s*\{(.*)\}\s*;?\s*$`)
	contentPattern   = regexp.MustCompile(`(?s)\bcontent\s*:\s*"((?:[^"\\]|\\.)*)"`)
	escapePattern    = regexp.MustCompile(`\\(.)`)
)

// decodeScriptVar handles `var apidata={ content:"...",records:N,pages:M,curpage:1};`.
// The object literal has unquoted keys, so it is matched field by field.
func decodeScriptVar(body string) (payload, bool) {
	m := scriptVarPattern.FindStringSubmatch(body)
	if m == nil {
		return payload{}, false
	}
	object := m[1]

	loc := contentPattern.FindStringSubmatchIndex(object)
	if loc == nil {
		return payload{}, false
	}
	content := escapePattern.ReplaceAllString(object[loc[2]:loc[3]], "$1")
	rest := object[:loc[0]] + object[loc[1]:]

	p := payload{content: content}
	p.records, p.hasRecords = matchCount(rest, recordFields)
	p.pages, p.hasPages = matchCount(rest, pageFields)
	return p, true
}

func matchCount(object string, fields []string) (int, bool) {
	for _, f := range fields {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(f) + `\s*:\s*"?(\d+)"?`)
		m := re.FindStringSubmatch(object)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// unescapeContent decodes a fragment whose markup itself arrived entity-escaped.
func unescapeContent(content string) string {
	if !strings.Contains(content, "<") && strings.Contains(content, "&lt;") {
		return html.UnescapeString(content)
	}
	return content
}
