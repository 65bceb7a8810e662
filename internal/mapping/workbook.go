// Package mapping loads the relational mapping tables that drive report assembly:
// institution/exposure/sector/product files, scenarios, and the output structure.
package mapping

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ExportTimeFormat is the layout of Workbook.ExportedAt (YYYYMMDD_HHMM).
const ExportTimeFormat = "20060102_1504"

// CleanString normalizes sheet and column names: trimmed, lower case,
// hyphens and spaces replaced by underscores.
func CleanString(s string) string {
	return strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Sheet is one table with cleaned column names; rows are aligned with Columns.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Index returns the position of a column, or -1.
func (s *Sheet) Index(column string) int {
	for i, c := range s.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns row[column], or "" when the column is absent.
func (s *Sheet) Value(row []string, column string) string {
	i := s.Index(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Workbook is the set of mapping sheets in file order.
type Workbook struct {
	ExportedAt string
	Sheets     []*Sheet
}

// Sheet returns a sheet by cleaned name.
func (w *Workbook) Sheet(name string) *Sheet {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ReadWorkbook reads an .xlsx workbook or its JSON export.
func ReadWorkbook(path string) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "mapping: open %s", path)
		}
		defer f.Close()
		return ReadJSON(f)
	default:
		return nil, eris.Errorf("mapping: unsupported file type %q (want .xlsx or .json)", filepath.Ext(path))
	}
}

func readXLSX(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	wb := &Workbook{}
	for _, sheet := range f.Sheets {
		s := &Sheet{Name: CleanString(sheet.Name)}
		for i, row := range sheet.Rows {
			cells := rowToStrings(row)
			if i == 0 {
				for _, c := range cells {
					s.Columns = append(s.Columns, CleanString(c))
				}
				continue
			}
			if isBlank(cells) {
				continue
			}
			s.Rows = append(s.Rows, align(cells, len(s.Columns)))
		}
		wb.Sheets = append(wb.Sheets, s)
	}
	return wb, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func align(cells []string, n int) []string {
	if len(cells) == n {
		return cells
	}
	out := make([]string, n)
	copy(out, cells)
	return out
}

// WriteXLSX saves the workbook, one sheet per table with a header row.
func WriteXLSX(path string, wb *Workbook) error {
	f := xlsx.NewFile()
	for _, s := range wb.Sheets {
		sheet, err := f.AddSheet(s.Name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", s.Name)
		}
		addRow(sheet, s.Columns)
		for _, row := range s.Rows {
			addRow(sheet, row)
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save file")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// orderedObject marshals keys in insertion order.
type orderedObject struct {
	keys   []string
	values []any
}

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteJSON writes {exported_at, sheets: {name: [records]}}; empty cells become null.
// ExportedAt defaults to the current time.
func WriteJSON(w io.Writer, wb *Workbook) error {
	exportedAt := wb.ExportedAt
	if exportedAt == "" {
		exportedAt = time.Now().Format(ExportTimeFormat)
	}

	sheets := orderedObject{}
	for _, s := range wb.Sheets {
		records := make([]orderedObject, 0, len(s.Rows))
		for _, row := range s.Rows {
			rec := orderedObject{keys: s.Columns, values: make([]any, len(s.Columns))}
			for i := range s.Columns {
				if i < len(row) && row[i] != "" {
					rec.values[i] = row[i]
				}
			}
			records = append(records, rec)
		}
		sheets.keys = append(sheets.keys, s.Name)
		sheets.values = append(sheets.values, records)
	}

	doc := orderedObject{
		keys:   []string{"exported_at", "sheets"},
		values: []any{exportedAt, sheets},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "json: marshal workbook")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "json: write workbook")
	}
	return nil
}

// ReadJSON parses the JSON export, keeping sheet and column order.
func ReadJSON(r io.Reader) (*Workbook, error) {
	var doc struct {
		ExportedAt string          `json:"exported_at"`
		Sheets     json.RawMessage `json:"sheets"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "json: decode workbook")
	}
	if len(doc.Sheets) == 0 {
		return nil, eris.New("json: workbook has no sheets")
	}

	dec := json.NewDecoder(bytes.NewReader(doc.Sheets))
	dec.UseNumber()

	wb := &Workbook{ExportedAt: doc.ExportedAt}
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		sheet, err := readSheet(dec, CleanString(name))
		if err != nil {
			return nil, eris.Wrapf(err, "json: sheet %s", name)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, expectDelim(dec, '}')
}

func readSheet(dec *json.Decoder, name string) (*Sheet, error) {
	s := &Sheet{Name: name}
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var records []map[string]string
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		rec := make(map[string]string)
		for dec.More() {
			key, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			key = CleanString(key)
			val, err := readScalar(dec)
			if err != nil {
				return nil, eris.Wrapf(err, "column %s", key)
			}
			if s.Index(key) < 0 {
				s.Columns = append(s.Columns, key)
			}
			rec[key] = val
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}

	for _, rec := range records {
		row := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			row[i] = rec[c]
		}
		if !isBlank(row) {
			s.Rows = append(s.Rows, row)
		}
	}
	return s, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "json: read token")
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return eris.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", eris.Wrap(err, "json: read key")
	}
	key, ok := tok.(string)
	if !ok {
		return "", eris.Errorf("json: expected object key, got %v", tok)
	}
	return key, nil
}

func readScalar(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", eris.Wrap(err, "json: read value")
	}
	switch v := tok.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	default:
		return "", eris.Errorf("json: nested values are not supported, got %v", tok)
	}
}
