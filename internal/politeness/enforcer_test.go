package politeness

import "testing"

func TestParseUnixOrZero(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"1700000000", 1700000000},
		{"not-a-number", 0},
	}
	for _, tc := range cases {
		if got := parseUnixOrZero(tc.in); got != tc.want {
			t.Errorf("parseUnixOrZero(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEnforcerCrawlDelayUsesConfiguredMinimum(t *testing.T) {
	robots := NewRobotsChecker(nil, "hivecrawl-test", 0, nil)
	e := &Enforcer{robots: robots, minDelay: 70}

	got := e.CrawlDelay("example.com")
	if got != 70 {
		t.Errorf("CrawlDelay() = %d, want configured minimum 70 when robots has no delay", got)
	}
}
