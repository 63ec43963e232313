package parsepool

import (
	"net/url"
	"testing"
)

func TestResolveLink(t *testing.T) {
	base, err := url.Parse("http://example.com/a/b")
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}

	cases := []struct {
		href    string
		want    string
		wantErr bool
	}{
		{href: "/c", want: "http://example.com/c"},
		{href: "c", want: "http://example.com/a/c"},
		{href: "http://other.com/x", want: "http://other.com/x"},
		{href: "javascript:void(0)", wantErr: true},
		{href: "mailto:a@b.com", wantErr: true},
	}

	for _, tc := range cases {
		got, err := resolveLink(base, tc.href)
		if tc.wantErr {
			if err == nil {
				t.Errorf("resolveLink(%q) expected error, got %q", tc.href, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("resolveLink(%q) unexpected error: %v", tc.href, err)
			continue
		}
		if got != tc.want {
			t.Errorf("resolveLink(%q) = %q, want %q", tc.href, got, tc.want)
		}
	}
}
