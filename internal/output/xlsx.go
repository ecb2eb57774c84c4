package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/tealeg/xlsx"

	"fundnav/internal/nav"
)

const (
	defaultSheetName = "历史净值"

	// DistributionSheetName holds the 分红送配 text that the six-column
	// table has no room for, one row per date with a distribution.
	DistributionSheetName = "分红送配"
)

var distributionHeader = []string{"净值日期", "分红送配"}

// XLSXWriter writes a spreadsheet sibling of the CSV with the same content,
// plus a second sheet listing distributions.
type XLSXWriter struct {
	SheetName string
}

func (XLSXWriter) Ext() string    { return "xlsx" }
func (XLSXWriter) Optional() bool { return true }

func (w XLSXWriter) Write(path string, h *nav.FundHistory) error {
	name := w.SheetName
	if name == "" {
		name = defaultSheetName
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(name)
	if err != nil {
		return err
	}
	addRow(sheet, Header)
	for _, cells := range rows(h) {
		addRow(sheet, cells)
	}

	dist, err := file.AddSheet(DistributionSheetName)
	if err != nil {
		return err
	}
	addRow(dist, distributionHeader)
	for _, r := range h.Records {
		if r.Dividend == "" {
			continue
		}
		addRow(dist, []string{r.Date.Format(nav.DateLayout), r.Dividend})
	}

	return file.Save(path)
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// ReadDistributions returns the distribution text stored by XLSXWriter in
// the spreadsheet at path, keyed by date.
func ReadDistributions(path string) (map[time.Time]string, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}
	sheet, ok := file.Sheet[DistributionSheetName]
	if !ok {
		return nil, fmt.Errorf("%s: no %s sheet", path, DistributionSheetName)
	}

	out := make(map[time.Time]string)
	for i, row := range sheet.Rows {
		if i == 0 || row == nil || len(row.Cells) < 2 {
			continue
		}
		date, err := time.Parse(nav.DateLayout, strings.TrimSpace(row.Cells[0].Value))
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(row.Cells[1].Value); text != "" {
			out[date] = text
		}
	}
	return out, nil
}
