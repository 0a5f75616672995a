/*
journal.go - Workbook rendering shared by the ADI and disbursements journals

PURPOSE:
  Wraps an excelize workbook with the "journal" write model both spreadsheet
  artifacts use: a named worksheet, a fixed starting row, and an ordered set
  of named fields, each bound to a column and a default cell style. Callers
  write one logical row at a time; the wrapper tracks the current row and
  turns field names into cell references.

STYLE MODEL:
  Styles are immutable values built once at process start (see adi/config.go
  and disbursements/config.go). A cell's effective style is the field default
  merged with an optional per-row override; the merge is component-wise, the
  override winning where set. Styles are realized lazily as excelize style
  IDs and cached, so repeated rows do not grow the stylesheet.

TEMPLATES:
  NewJournal opens the workbook template with VBA preserved so .xlsm macros
  survive the round trip. A missing or malformed template is a deployment
  fault and surfaces as an error from NewJournal; there is no recovery path.
  With an empty template path a blank workbook is created instead, which is
  how the tests run without shipping binary fixtures.

SEE ALSO:
  - output.go: labels, filenames and shared errors
*/
package output

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// STYLES
// =============================================================================

// Style describes the visual treatment of a cell. The zero value inherits
// everything from the template.
type Style struct {
	FillColor    string
	Borders      []excelize.Border
	Font         *excelize.Font
	Alignment    *excelize.Alignment
	NumberFormat string
}

// Merge returns the receiver overlaid with the components of over that are
// set. Border lists are concatenated so an override can add a totals-row
// border without discarding the field's own edges.
func (s Style) Merge(over Style) Style {
	merged := s
	if over.FillColor != "" {
		merged.FillColor = over.FillColor
	}
	if len(over.Borders) > 0 {
		merged.Borders = append(append([]excelize.Border{}, s.Borders...), over.Borders...)
	}
	if over.Font != nil {
		merged.Font = over.Font
	}
	if over.Alignment != nil {
		merged.Alignment = over.Alignment
	}
	if over.NumberFormat != "" {
		merged.NumberFormat = over.NumberFormat
	}
	return merged
}

func (s Style) isZero() bool {
	return s.FillColor == "" && len(s.Borders) == 0 && s.Font == nil &&
		s.Alignment == nil && s.NumberFormat == ""
}

func (s Style) toExcelize() *excelize.Style {
	es := &excelize.Style{Border: s.Borders}
	if s.FillColor != "" {
		es.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{s.FillColor}}
	}
	if s.Font != nil {
		es.Font = s.Font
	}
	if s.Alignment != nil {
		es.Alignment = s.Alignment
	}
	if s.NumberFormat != "" {
		fmtCode := s.NumberFormat
		es.CustomNumFmt = &fmtCode
	}
	return es
}

// =============================================================================
// FIELDS
// =============================================================================

// Field binds a named journal column to a worksheet column and its default
// style. Field order is the order cells are written within a row.
type Field struct {
	Name   string
	Column string
	Style  Style
}

// =============================================================================
// JOURNAL
// =============================================================================

// Journal writes rows of named fields into a worksheet, starting at a fixed
// row and advancing as rows are added.
type Journal struct {
	file       *excelize.File
	sheet      string
	startRow   int
	currentRow int
	fields     []Field
	fieldIndex map[string]Field
	styleCache map[string]int
}

// NewJournal opens templatePath (VBA preserved) and prepares to write into
// the named sheet at startRow. An empty templatePath creates a blank
// workbook containing only the named sheet.
func NewJournal(templatePath, sheet string, startRow int, fields []Field) (*Journal, error) {
	var file *excelize.File
	if templatePath == "" {
		file = excelize.NewFile()
		index, err := file.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
		file.SetActiveSheet(index)
	} else {
		var err error
		file, err = excelize.OpenFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("opening journal template %s: %w", templatePath, err)
		}
		if _, err := file.GetSheetIndex(sheet); err != nil {
			return nil, fmt.Errorf("journal template is missing sheet %q: %w", sheet, err)
		}
	}

	index := make(map[string]Field, len(fields))
	for _, f := range fields {
		index[f.Name] = f
	}
	return &Journal{
		file:       file,
		sheet:      sheet,
		startRow:   startRow,
		currentRow: startRow,
		fields:     fields,
		fieldIndex: index,
		styleCache: make(map[string]int),
	}, nil
}

// Fields returns the journal's fields in write order.
func (j *Journal) Fields() []Field { return j.fields }

// StartRow returns the first data row.
func (j *Journal) StartRow() int { return j.startRow }

// CurrentRow returns the row the next write lands on.
func (j *Journal) CurrentRow() int { return j.currentRow }

// NextRow advances the write position by n rows.
func (j *Journal) NextRow(n int) { j.currentRow += n }

// Cell returns the cell reference for a field on the current row.
func (j *Journal) Cell(field string) (string, error) {
	f, ok := j.fieldIndex[field]
	if !ok {
		return "", fmt.Errorf("unknown journal field %q", field)
	}
	return fmt.Sprintf("%s%d", f.Column, j.currentRow), nil
}

// Column returns the worksheet column bound to a field.
func (j *Journal) Column(field string) (string, error) {
	f, ok := j.fieldIndex[field]
	if !ok {
		return "", fmt.Errorf("unknown journal field %q", field)
	}
	return f.Column, nil
}

// SetField writes a string value into a field on the current row, applying
// the field's default style merged with any overrides.
func (j *Journal) SetField(field, value string, overrides ...Style) error {
	cell, err := j.Cell(field)
	if err != nil {
		return err
	}
	if value != "" {
		if err := j.file.SetCellValue(j.sheet, cell, value); err != nil {
			return err
		}
	}
	return j.applyStyle(field, cell, overrides)
}

// SetAmount writes a monetary value into a field on the current row. The
// decimal is converted to a float only here, at the render boundary.
func (j *Journal) SetAmount(field string, amount decimal.Decimal, overrides ...Style) error {
	cell, err := j.Cell(field)
	if err != nil {
		return err
	}
	value, _ := amount.Float64()
	if err := j.file.SetCellValue(j.sheet, cell, value); err != nil {
		return err
	}
	return j.applyStyle(field, cell, overrides)
}

// SetFormula writes a native formula into a field on the current row, so the
// calculation remains auditable in the opened file.
func (j *Journal) SetFormula(field, formula string, overrides ...Style) error {
	cell, err := j.Cell(field)
	if err != nil {
		return err
	}
	if err := j.file.SetCellFormula(j.sheet, cell, formula); err != nil {
		return err
	}
	return j.applyStyle(field, cell, overrides)
}

// SetCell writes a value at an absolute cell reference, outside the row
// cursor. Used for metadata cells like the batch name and journal date.
func (j *Journal) SetCell(cell, value string) error {
	return j.file.SetCellValue(j.sheet, cell, value)
}

// RenameSheet retitles the journal worksheet.
func (j *Journal) RenameSheet(title string) error {
	if err := j.file.SetSheetName(j.sheet, title); err != nil {
		return err
	}
	j.sheet = title
	return nil
}

// DefineName creates a workbook-scoped named range over the given span,
// for downstream bulk-upload tooling.
func (j *Journal) DefineName(name, refersTo string) error {
	return j.file.SetDefinedName(&excelize.DefinedName{
		Name:     name,
		RefersTo: refersTo,
		Scope:    "Workbook",
	})
}

// SheetRef builds a sheet-qualified absolute reference for DefineName.
func (j *Journal) SheetRef(column string, fromRow, toRow int) string {
	return fmt.Sprintf("'%s'!$%s$%d:$%s$%d", j.sheet, column, fromRow, column, toRow)
}

// Bytes serializes the workbook. The caller decides persistence.
func (j *Journal) Bytes() ([]byte, error) {
	buf, err := j.file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (j *Journal) applyStyle(field, cell string, overrides []Style) error {
	style := j.fieldIndex[field].Style
	for _, o := range overrides {
		style = style.Merge(o)
	}
	if style.isZero() {
		return nil
	}
	key := styleKey(field, overrides)
	id, ok := j.styleCache[key]
	if !ok {
		var err error
		id, err = j.file.NewStyle(style.toExcelize())
		if err != nil {
			return err
		}
		j.styleCache[key] = id
	}
	return j.file.SetCellStyle(j.sheet, cell, cell, id)
}

func styleKey(field string, overrides []Style) string {
	key := field
	for _, o := range overrides {
		key += fmt.Sprintf("|%s/%d/%v/%v/%s", o.FillColor, len(o.Borders), o.Font, o.Alignment, o.NumberFormat)
	}
	return key
}
