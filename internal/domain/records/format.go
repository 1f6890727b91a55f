package records

import (
	"strconv"
	"time"
)

// DisplayDateLayout is the dd/mm/yyyy layout used on every page and export.
const DisplayDateLayout = "02/01/2006"

// FormatDate turns a stored YYYY-MM-DD date into dd/mm/yyyy. Anything that
// does not parse is returned as is.
func FormatDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format(DisplayDateLayout)
}

// FormatNumber prints n without trailing zeros; nil prints as "".
func FormatNumber(n *float64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatFloat(*n, 'f', -1, 64)
}
