package eligibility

import (
	"encoding/json"
	"fmt"
	"time"
)

// Promotion is a promotional banner plus the scheduling rules that decide
// when it is shown. Display fields (Title, Description, ImageRef) are opaque
// to the evaluator.
//
// Every constraint dimension is optional: a nil date pair, nil time pair or
// empty day set matches any instant. IsActive=false overrides everything.
type Promotion struct {
	ID          string `json:"id"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	ImageRef    string `json:"imageRef"`

	IsActive   bool `json:"isActive"`
	IsPriority bool `json:"isPriority"`

	ValidFrom *Date      `json:"validFrom,omitempty"`
	ValidTo   *Date      `json:"validTo,omitempty"`
	StartTime *TimeOfDay `json:"startTime,omitempty"`
	EndTime   *TimeOfDay `json:"endTime,omitempty"`

	// 0=Sunday .. 6=Saturday; empty means every day.
	Days []time.Weekday `json:"daysOfWeek,omitempty" validate:"dive,min=0,max=6"`
}

// Reason identifies the rule dimension that rejected a promotion.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonInactive   Reason = "inactive"
	ReasonDateWindow Reason = "date_window"
	ReasonTimeWindow Reason = "time_window"
	ReasonDayOfWeek  Reason = "day_of_week"
)

// Result is the evaluator output: eligibility plus, on rejection, the
// dimension that failed. Used for operator diagnostics, never persisted.
type Result struct {
	Eligible bool   `json:"eligible"`
	Reason   Reason `json:"reason,omitempty"`
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates an instant to its calendar date in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Compare returns -1, 0 or 1 ordering d against o.
func (d Date) Compare(o Date) int {
	a := d.Year*10000 + int(d.Month)*100 + d.Day
	b := o.Year*10000 + int(o.Month)*100 + o.Day
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a local wall-clock time at minute resolution, stored as
// minutes since midnight.
type TimeOfDay int

// TimeOfDayOf truncates an instant to its minute-of-day.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDayOf(t), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
