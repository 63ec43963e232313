package fetchpool

import (
	"testing"

	"github.com/northcloud/hivecrawl/internal/errs"
)

func TestIsTextContentType(t *testing.T) {
	cases := []struct {
		contentType string
		want        bool
	}{
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isTextContentType(tc.contentType); got != tc.want {
			t.Errorf("isTextContentType(%q) = %v, want %v", tc.contentType, got, tc.want)
		}
	}
}

func TestClassifyKind(t *testing.T) {
	wrapped := errs.New(errs.ParseFailed, "fetch", nil)
	if got := classifyKind(wrapped); got != errs.ParseFailed {
		t.Errorf("classifyKind(classified error) = %v, want %v", got, errs.ParseFailed)
	}

	plain := errPlain("boom")
	if got := classifyKind(plain); got != errs.TransientHTTP {
		t.Errorf("classifyKind(plain error) = %v, want %v", got, errs.TransientHTTP)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
