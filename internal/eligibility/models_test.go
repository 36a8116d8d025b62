package eligibility

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-02-29" {
		t.Errorf("String() = %q", d.String())
	}

	for _, bad := range []string{"", "2024-13-01", "01/02/2024", "2024-02-30"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) accepted", bad)
		}
	}
}

func TestDateCompare(t *testing.T) {
	a := Date{2024, time.January, 31}
	b := Date{2024, time.February, 1}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatalf("Compare ordering wrong: %v vs %v", a, b)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("18:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay: %v", err)
	}
	if int(tod) != 18*60+30 {
		t.Errorf("minutes = %d", tod)
	}
	if tod.String() != "18:30" {
		t.Errorf("String() = %q", tod.String())
	}

	for _, bad := range []string{"", "25:00", "18:60", "6pm"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Errorf("ParseTimeOfDay(%q) accepted", bad)
		}
	}
}

func TestPromotionJSON(t *testing.T) {
	in := `{
		"id": "p1",
		"title": "Happy Hour",
		"isActive": true,
		"isPriority": true,
		"validFrom": "2024-01-01",
		"validTo": "2024-01-31",
		"startTime": "18:00",
		"endTime": "22:00",
		"daysOfWeek": [5, 6]
	}`
	var p Promotion
	if err := json.Unmarshal([]byte(in), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ValidFrom == nil || p.ValidFrom.String() != "2024-01-01" {
		t.Errorf("ValidFrom = %v", p.ValidFrom)
	}
	if p.StartTime == nil || *p.StartTime != TimeOfDay(18*60) {
		t.Errorf("StartTime = %v", p.StartTime)
	}
	if len(p.Days) != 2 || p.Days[0] != time.Friday || p.Days[1] != time.Saturday {
		t.Errorf("Days = %v", p.Days)
	}
}
