package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fundnav/internal/nav"
	"fundnav/internal/parser"
)

// utf8BOM lets spreadsheet applications detect the encoding of the Chinese headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes comma-separated UTF-8 text with a byte-order mark.
type CSVWriter struct{}

func (CSVWriter) Ext() string    { return "csv" }
func (CSVWriter) Optional() bool { return false }

func (CSVWriter) Write(path string, h *nav.FundHistory) error {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return err
	}
	if err := w.WriteAll(rows(h)); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadCSV loads a file written by CSVWriter back into a FundHistory.
// Rows that no longer parse are dropped. The CSV has no distribution
// column, so every record's Dividend is empty; see LoadCached.
func ReadCSV(path, fundCode string) (*nav.FundHistory, error) {
	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}
	return nav.NewFundHistory(fundCode, records), nil
}

// LoadCached loads the CSV at csvPath and restores distribution text from
// its .xlsx sibling. The boolean reports whether that sibling was read;
// when false, distributions are unknown rather than absent.
func LoadCached(csvPath, fundCode string) (*nav.FundHistory, bool, error) {
	records, err := readCSVRecords(csvPath)
	if err != nil {
		return nil, false, err
	}

	sibling := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + "." + XLSXWriter{}.Ext()
	dist, err := ReadDistributions(sibling)
	if err != nil {
		return nav.NewFundHistory(fundCode, records), false, nil
	}
	for i := range records {
		records[i].Dividend = dist[records[i].Date]
	}
	return nav.NewFundHistory(fundCode, records), true, nil
}

func readCSVRecords(path string) ([]nav.NavRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	if len(header) < len(Header) || header[0] != Header[0] {
		return nil, fmt.Errorf("%s: unexpected header %v", path, header)
	}

	var records []nav.NavRecord
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if outcome := parser.ParseRow(cells); outcome.OK {
			records = append(records, outcome.Record)
		}
	}

	return records, nil
}

// FindCached returns the CSV of an earlier run for fundCode in dir.
// When several exist the one reaching the latest date wins; empty
// histories are ignored.
func FindCached(dir, fundCode string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	prefix := nav.FilenamePrefix(fundCode)
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if strings.HasSuffix(name, "_empty.csv") {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", false
	}

	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), true
}
