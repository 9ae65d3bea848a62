package domain

import (
	"testing"
	"time"
)

func TestCrewTenure(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		joinDate string
		want     string
	}{
		{"five plus years", "2018-01-15", TenureSenior},
		{"just over five years", "2021-07-01", TenureSenior},
		{"between one and five", "2023-08-01", TenureJunior},
		{"just over a year", "2025-07-01", TenureJunior},
		{"under a year", "2025-11-10", TenurePemula},
		{"empty join date", "", TenurePemula},
		{"malformed join date", "not-a-date", TenurePemula},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := CrewMember{JoinDate: tc.joinDate}
			if got := c.Tenure(now); got != tc.want {
				t.Fatalf("Tenure(%q) = %q, want %q", tc.joinDate, got, tc.want)
			}
		})
	}
}
