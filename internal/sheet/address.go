package sheet

import (
	"fmt"
	"strings"
	"time"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

// Block widths: the evaluation sheet spends four columns per week (one per
// category), the attendance sheet one.
const (
	EvalBlockWidth   = 4
	AttendBlockWidth = 1
)

// categoryOffsets fixes the column order of evaluation categories inside a
// week's block. The order is part of the sheet layout and must not change.
var categoryOffsets = map[string]int{
	model.CategoryDiscipline:    0,
	model.CategoryBehaviour:     1,
	model.CategoryHomework:      2,
	model.CategoryParticipation: 3,
}

// CellAddress is a derived value, recomputed on every sync. The same record
// always maps to the same address.
type CellAddress struct {
	SheetName string
	Row       int
	Column    int
}

// Ref renders the address in A1 notation, e.g. "5A!P12".
func (a CellAddress) Ref() string {
	return fmt.Sprintf("%s!%s%d", a.SheetName, ColumnLetter(a.Column), a.Row)
}

// WeeksSince returns the number of whole weeks elapsed from origin to date.
// Dates before origin are rejected upstream; behavior below origin is
// undefined here.
func WeeksSince(origin, date time.Time) int {
	days := int(date.Sub(origin).Hours() / 24)
	return days / 7
}

// ColumnForDate maps a date onto the first column of its week's block.
func ColumnForDate(origin, date time.Time, baseColumn, blockWidth int) int {
	return baseColumn + WeeksSince(origin, date)*blockWidth
}

// ColumnForCategory adds the category's fixed offset to a week's base column.
func ColumnForCategory(baseColumn int, category string) (int, error) {
	offset, ok := categoryOffsets[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", errors.ErrUnknownCategory, category)
	}
	return baseColumn + offset, nil
}

// ColumnLetter converts a 1-based column index to its letter name in
// bijective base-26: 1 -> A, 26 -> Z, 27 -> AA.
func ColumnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// ColumnNumber is the inverse of ColumnLetter.
func ColumnNumber(letter string) (int, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if letter == "" {
		return 0, fmt.Errorf("empty column letter")
	}

	n := 0
	for _, c := range letter {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column letter %q", letter)
		}
		n = n*26 + int(c-'A') + 1
	}
	return n, nil
}

// ResolveAddress computes the cell a pending record must be written to, given
// the owner's sheet configuration and the subject's placement.
func ResolveAddress(cfg *model.SheetConfig, placement *model.SubjectPlacement, rec model.SyncRecord) (CellAddress, error) {
	var column int
	switch rec.Kind {
	case model.RecordKindAttendance:
		column = ColumnForDate(cfg.OriginDate, rec.Date, cfg.AttendBaseColumn, AttendBlockWidth)
	case model.RecordKindEvaluation:
		weekBase := ColumnForDate(cfg.OriginDate, rec.Date, cfg.EvalBaseColumn, EvalBlockWidth)
		var err error
		column, err = ColumnForCategory(weekBase, rec.Category)
		if err != nil {
			return CellAddress{}, err
		}
	default:
		return CellAddress{}, fmt.Errorf("unknown record kind %q", rec.Kind)
	}

	return CellAddress{
		SheetName: placement.SheetName,
		Row:       placement.Row,
		Column:    column,
	}, nil
}
