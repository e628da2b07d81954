package family

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonDigitReg = regexp.MustCompile(`[^0-9]`)
	digitsReg   = regexp.MustCompile(`^[0-9]+$`)
	isoDateReg  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dmyDateReg  = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})$`)
)

const (
	NIDLength    = 9
	MinBirthYear = 1900
)

// ValidatePhone reports whether p is empty, exactly 10 digits starting with 0,
// or exactly 9 digits not starting with 0.
func ValidatePhone(p string) bool {
	if p == "" {
		return true
	}
	if !digitsReg.MatchString(p) {
		return false
	}
	switch len(p) {
	case 10:
		return p[0] == '0'
	case 9:
		return p[0] != '0'
	}
	return false
}

// NormalizeNID strips every non-digit character.
func NormalizeNID(nid string) string {
	return nonDigitReg.ReplaceAllString(nid, "")
}

// ValidNID reports whether the normalized nid has exactly NIDLength digits.
func ValidNID(nid string) bool {
	return len(nid) == NIDLength
}

// Date is a decomposed day/month/year. Calendar validity (Feb 30) is not checked.
type Date struct {
	Day   int
	Month int
	Year  int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// ParseDate accepts YYYY-MM-DD and DD/MM/YYYY (also with - or . separators)
// and checks day in 1..31, month in 1..12 and year in 1900..now.
func ParseDate(raw string, now time.Time) (Date, error) {
	raw = strings.TrimSpace(raw)

	var d Date
	if m := isoDateReg.FindStringSubmatch(raw); m != nil {
		d.Year, _ = strconv.Atoi(m[1])
		d.Month, _ = strconv.Atoi(m[2])
		d.Day, _ = strconv.Atoi(m[3])
	} else if m := dmyDateReg.FindStringSubmatch(raw); m != nil {
		d.Day, _ = strconv.Atoi(m[1])
		d.Month, _ = strconv.Atoi(m[2])
		d.Year, _ = strconv.Atoi(m[3])
	} else {
		return Date{}, fmt.Errorf("unrecognized date %q", raw)
	}

	if d.Day < 1 || d.Day > 31 {
		return Date{}, fmt.Errorf("day %d out of range", d.Day)
	}
	if d.Month < 1 || d.Month > 12 {
		return Date{}, fmt.Errorf("month %d out of range", d.Month)
	}
	if d.Year < MinBirthYear || d.Year > now.Year() {
		return Date{}, fmt.Errorf("year %d out of range", d.Year)
	}

	return d, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
