/*
Package xlsx moves shifts and pay periods in and out of Excel workbooks.

IMPORT (ReadShifts):
  First sheet, first row is a header. Recognised columns, in any order and
  case-insensitive: date, employerId, employer, start, end, id. Dates may be
  YYYY-MM-DD, D/M/YYYY or Excel serials; times may be HH:MM, HH:MM:SS or
  day fractions. Blank rows are ignored. Shifts without an id get the same
  stable ID that shifts.json import gives them.

EXPORT (WritePayPeriods):
  One sheet, one row per pay period, employers in ID order.
*/
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/warp/casual-pay/factory"
	"github.com/warp/casual-pay/payroll"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoWorksheet   = errors.New("no worksheet found")
	ErrEmptySheet    = errors.New("worksheet is empty")
	ErrMissingColumn = errors.New("missing required column")
)

// RowError locates a bad cell in an imported sheet.
type RowError struct {
	Row    int // 1-based, as Excel shows it
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, %s: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

var requiredColumns = []string{"date", "employerid", "start", "end"}

// ReadShifts parses the first worksheet of an xlsx workbook.
func ReadShifts(r io.Reader) ([]payroll.Shift, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoWorksheet
	}

	rows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[normalizeHeader(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	col := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok {
			return ""
		}
		return cellValue(row, idx)
	}

	var shifts []payroll.Shift
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}

		date, err := parseDate(col(row, "date"))
		if err != nil {
			return nil, &RowError{Row: line, Column: "date", Err: err}
		}
		start, err := parseClock(col(row, "start"))
		if err != nil {
			return nil, &RowError{Row: line, Column: "start", Err: err}
		}
		end, err := parseClock(col(row, "end"))
		if err != nil {
			return nil, &RowError{Row: line, Column: "end", Err: err}
		}
		employerID := col(row, "employerid")
		if employerID == "" {
			return nil, &RowError{Row: line, Column: "employerId", Err: errors.New("required")}
		}

		s := payroll.Shift{
			ID:         col(row, "id"),
			EmployerID: payroll.EmployerID(employerID),
			Employer:   col(row, "employer"),
			Date:       date,
			Start:      start,
			End:        end,
		}
		if s.ID == "" {
			s.ID = factory.ShiftID(s, len(shifts))
		}
		shifts = append(shifts, s)
	}
	return shifts, nil
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var dateFormats = []string{
	payroll.DateLayout,
	"2/1/2006",
	"02/01/2006",
	"2/1/06",
}

func parseDate(value string) (payroll.Date, error) {
	if value == "" {
		return payroll.Date{}, payroll.ErrInvalidDate
	}
	// Excel date serial
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return payroll.Date{}, err
		}
		return payroll.DateOf(t), nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return payroll.DateOf(t), nil
		}
	}
	return payroll.Date{}, fmt.Errorf("%w: %q", payroll.ErrInvalidDate, value)
}

func parseClock(value string) (payroll.Clock, error) {
	// Day fraction, as Excel stores a time cell
	if f, err := strconv.ParseFloat(value, 64); err == nil && f >= 0 && f < 1 {
		minutes := int(math.Round(f * 24 * 60))
		if minutes == 24*60 {
			minutes = 0
		}
		return payroll.Clock(minutes), nil
	}
	if strings.Count(value, ":") == 2 {
		value = value[:strings.LastIndex(value, ":")]
	}
	return payroll.ParseClock(value)
}

// =============================================================================
// EXPORT
// =============================================================================

const periodSheet = "Pay Periods"

var periodHeaders = []string{
	"Employer", "Start", "End", "Pay Date", "Shifts", "Hours",
	"Gross Pay", "Allowances", "Total Gross", "Tax", "Net Pay",
}

// WritePayPeriods writes one row per period to w as an xlsx workbook.
func WritePayPeriods(w io.Writer, periods map[payroll.EmployerID][]payroll.PayPeriod) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(periodSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, header := range periodHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(periodSheet, cell, header); err != nil {
			return err
		}
	}

	ids := make([]payroll.EmployerID, 0, len(periods))
	for id := range periods {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rowIndex := 2
	for _, id := range ids {
		for _, p := range periods[id] {
			values := []any{
				string(id),
				p.StartDate.String(),
				p.EndDate.String(),
				p.PayDate.String(),
				len(p.Shifts),
				p.TotalHours.InexactFloat64(),
				p.GrossPay.InexactFloat64(),
				p.AllowanceTotal.InexactFloat64(),
				p.TotalGrossPay.InexactFloat64(),
				p.Tax.InexactFloat64(),
				p.NetPay.InexactFloat64(),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, rowIndex)
				if err := f.SetCellValue(periodSheet, cell, v); err != nil {
					return err
				}
			}
			rowIndex++
		}
	}

	_, err = f.WriteTo(w)
	return err
}
