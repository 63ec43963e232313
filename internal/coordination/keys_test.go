package coordination

import "testing"

func TestDomainMetaKey(t *testing.T) {
	got := DomainMetaKey("example.com")
	want := "hivecrawl:domain:example.com"
	if got != want {
		t.Fatalf("DomainMetaKey() = %q, want %q", got, want)
	}
}

func TestVisitedRecordKey(t *testing.T) {
	got := VisitedRecordKey("abc123")
	want := "hivecrawl:visited:abc123"
	if got != want {
		t.Fatalf("VisitedRecordKey() = %q, want %q", got, want)
	}
}

func TestFormatScore(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1700000000, "1700000000"},
		{1.5, "1.5"},
	}
	for _, tc := range cases {
		if got := formatScore(tc.in); got != tc.want {
			t.Errorf("formatScore(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
