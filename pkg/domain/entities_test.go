package domain

import (
	"testing"
	"time"
)

func TestShiftWindows(t *testing.T) {
	if start, end := ShiftDay.Window(); start != 8 || end != 16 {
		t.Fatalf("DAY window = [%d,%d), want [8,16)", start, end)
	}
	if start, end := ShiftEve.Window(); start != 14 || end != 22 {
		t.Fatalf("EVE window = [%d,%d), want [14,22)", start, end)
	}
}

func TestShiftCovers(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sh := Shift{StaffID: "N1", Day: day, Type: ShiftDay}

	cases := []struct {
		at   time.Time
		want bool
	}{
		{day.Add(8 * time.Hour), true},
		{day.Add(15*time.Hour + 59*time.Minute), true},
		{day.Add(16 * time.Hour), false},
		{day.Add(7*time.Hour + 59*time.Minute), false},
		{day.AddDate(0, 0, 1).Add(9 * time.Hour), false},
	}
	for _, tc := range cases {
		if got := sh.Covers(tc.at); got != tc.want {
			t.Fatalf("Covers(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestShiftOverlapHours(t *testing.T) {
	// Day and evening blocks deliberately overlap between 14:00 and 16:00.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := day.Add(15 * time.Hour)
	if !(Shift{StaffID: "A", Day: day, Type: ShiftDay}).Covers(at) {
		t.Fatalf("DAY shift should cover 15:00")
	}
	if !(Shift{StaffID: "A", Day: day, Type: ShiftEve}).Covers(at) {
		t.Fatalf("EVE shift should cover 15:00")
	}
}

func TestDayOf(t *testing.T) {
	at := time.Date(2026, 3, 2, 23, 45, 12, 999, time.FixedZone("X", 3600))
	got := DayOf(at)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DayOf = %s, want %s", got, want)
	}
}

func TestSameSlot(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	a := Shift{StaffID: "N1", Day: day, Type: ShiftDay}
	b := Shift{StaffID: "n1", Day: day.Add(5 * time.Hour), Type: ShiftDay}
	if !a.SameSlot(b) {
		t.Fatalf("expected case-insensitive, day-truncated slot match")
	}
	c := Shift{StaffID: "N1", Day: day, Type: ShiftEve}
	if a.SameSlot(c) {
		t.Fatalf("different shift types must not match")
	}
}

func TestParseRole(t *testing.T) {
	for input, want := range map[string]Role{
		"doctor":    RoleDoctor,
		"NURSE":     RoleNurse,
		" manager ": RoleManager,
	} {
		got, err := ParseRole(input)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := ParseRole("janitor"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestParseShiftType(t *testing.T) {
	for input, want := range map[string]ShiftType{"day": ShiftDay, "EVE": ShiftEve} {
		got, err := ParseShiftType(input)
		if err != nil {
			t.Fatalf("ParseShiftType(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseShiftType(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := ParseShiftType("night"); err == nil {
		t.Fatalf("expected error for unknown shift type")
	}
}

func TestResultFirstBlocking(t *testing.T) {
	res := Result{Violations: []Violation{
		{Rule: "warn_rule", Severity: SeverityWarn},
		{Rule: "block_rule", Severity: SeverityBlock},
	}}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	v, ok := res.FirstBlocking()
	if !ok || v.Rule != "block_rule" {
		t.Fatalf("FirstBlocking = %+v, %v", v, ok)
	}
}
