package frontier

import "testing"

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases host and scheme",
			in:   "HTTP://Example.COM/Path",
			want: "http://example.com/Path",
		},
		{
			name: "strips default port",
			in:   "http://example.com:80/a",
			want: "http://example.com/a",
		},
		{
			name: "keeps non-default port",
			in:   "http://example.com:8080/a",
			want: "http://example.com:8080/a",
		},
		{
			name: "drops fragment",
			in:   "http://example.com/a#section",
			want: "http://example.com/a",
		},
		{
			name: "strips tracking params and sorts remaining",
			in:   "http://example.com/a?b=2&utm_source=x&a=1",
			want: "http://example.com/a?a=1&b=2",
		},
		{
			name: "resolves dot segments",
			in:   "http://example.com/a/../b/./c",
			want: "http://example.com/b/c",
		},
		{
			name: "empty path becomes slash",
			in:   "http://example.com",
			want: "http://example.com/",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) returned error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestURLHashStable(t *testing.T) {
	a := URLHash("http://example.com/a")
	b := URLHash("http://example.com/a")
	if a != b {
		t.Fatalf("URLHash not stable: %q != %q", a, b)
	}
	c := URLHash("http://example.com/b")
	if a == c {
		t.Fatalf("URLHash collided for distinct inputs")
	}
}

func TestExtractHost(t *testing.T) {
	got, err := ExtractHost("https://Example.com:443/path")
	if err != nil {
		t.Fatalf("ExtractHost returned error: %v", err)
	}
	if got != "example.com" {
		t.Errorf("ExtractHost = %q, want %q", got, "example.com")
	}
}

func TestHasNonTextExtension(t *testing.T) {
	blocklist := []string{".jpg", ".pdf"}
	if !HasNonTextExtension("http://example.com/a/b.JPG", blocklist) {
		t.Errorf("expected .JPG to match blocklist case-insensitively")
	}
	if HasNonTextExtension("http://example.com/a/b.html", blocklist) {
		t.Errorf("did not expect .html to match blocklist")
	}
}

func TestExceedsMaxLength(t *testing.T) {
	if ExceedsMaxLength("short", 10) {
		t.Errorf("short url should not exceed max length")
	}
	if !ExceedsMaxLength("this-is-a-fairly-long-url-path", 10) {
		t.Errorf("long url should exceed max length")
	}
	if ExceedsMaxLength("anything", 0) {
		t.Errorf("max=0 should mean no limit")
	}
}
