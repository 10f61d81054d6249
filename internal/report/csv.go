// Package report renders the flat-file artifacts of the operational
// commands: the user audit CSV, the charts embedded in the PDF reports,
// and the PDF reports themselves.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dbailuk/arcgis-automation/internal/errors"
	"github.com/dbailuk/arcgis-automation/internal/fsutil"
	"github.com/dbailuk/arcgis-automation/internal/useraudit"
	"github.com/gocarina/gocsv"
)

// utf8BOM makes spreadsheet tools detect the encoding, matching the
// utf-8-sig output of the previous report generation.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteUserCSV writes the per-user audit rows to path.
func WriteUserCSV(path string, records []useraudit.Record) error {
	if err := fsutil.CreateDirIfNotExists(filepath.Dir(path)); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrReportWrite, err.Error())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrReportWrite, err.Error())
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrReportWrite, err.Error())
	}
	if err := gocsv.Marshal(&records, f); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrReportWrite, err.Error())
	}
	return nil
}
