package model

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrBadSeatLabel is returned by SeatLayout.Validate for a label outside the grid.
var ErrBadSeatLabel = errors.New("invalid seat label")

// SeatLayout describes the auditorium grid shared by every show.  Rows are
// lettered A, B, ..., Z, AA, AB, ... and seats are numbered from 1, so a
// 10×9 layout has labels A1 through J9.
type SeatLayout struct {
	Rows int
	Cols int
}

// DefaultSeatLayout is ten rows of nine seats.
var DefaultSeatLayout = SeatLayout{Rows: 10, Cols: 9}

// Contains reports whether label is a canonical label inside the grid.
func (l SeatLayout) Contains(label string) bool {
	row, col, ok := ParseSeatLabel(label)
	return ok && row < l.Rows && col >= 1 && col <= l.Cols
}

// Validate returns ErrBadSeatLabel wrapped with the offending label.
func (l SeatLayout) Validate(label string) error {
	if !l.Contains(label) {
		return fmt.Errorf("%w: %q", ErrBadSeatLabel, label)
	}
	return nil
}

// Labels returns every label of the grid in row-major order.
func (l SeatLayout) Labels() []string {
	out := make([]string, 0, l.Rows*l.Cols)
	for r := 0; r < l.Rows; r++ {
		for c := 1; c <= l.Cols; c++ {
			out = append(out, SeatLabel(r, c))
		}
	}
	return out
}

// SeatLabel builds the label for a zero-based row index and a one-based seat number.
func SeatLabel(row, col int) string {
	return RowLabel(row) + strconv.Itoa(col)
}

// RowLabel converts a zero-based index to an alphabetical row label like A, B, AA.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []byte
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// ParseSeatLabel splits a canonical label such as "C7" into its zero-based
// row index and one-based seat number.  Lowercase letters, spaces, signs and
// leading zeros are rejected so each seat has exactly one spelling.
func ParseSeatLabel(label string) (row, col int, ok bool) {
	i := 0
	for i < len(label) && label[i] >= 'A' && label[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(label) || i > 3 {
		return 0, 0, false
	}
	digits := label[i:]
	if digits[0] == '0' || len(digits) > 4 {
		return 0, 0, false
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return 0, 0, false
		}
	}
	col, _ = strconv.Atoi(digits)

	n := 0
	for j := 0; j < i; j++ {
		n = n*26 + int(label[j]-'A'+1)
	}
	return n - 1, col, true
}
