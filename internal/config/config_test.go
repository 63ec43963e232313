package config

import "testing"

func TestCrawlerWithDefaultsFillsZeroValues(t *testing.T) {
	c := Crawler{}.WithDefaults()

	if c.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", c.UserAgent, DefaultUserAgent)
	}
	if c.MaxWorkers != defaultMaxWorkers {
		t.Errorf("MaxWorkers = %d, want %d", c.MaxWorkers, defaultMaxWorkers)
	}
	if c.MinCrawlDelaySeconds != DefaultMinCrawlDelaySeconds {
		t.Errorf("MinCrawlDelaySeconds = %d, want %d", c.MinCrawlDelaySeconds, DefaultMinCrawlDelaySeconds)
	}
	if len(c.NonTextExtensions) == 0 {
		t.Error("NonTextExtensions: expected default blocklist, got none")
	}
	if c.CandidatesPerScan != c.MaxWorkers*5 {
		t.Errorf("CandidatesPerScan = %d, want %d", c.CandidatesPerScan, c.MaxWorkers*5)
	}
}

func TestCrawlerWithDefaultsPreservesExplicitValues(t *testing.T) {
	c := Crawler{
		UserAgent:            "custom-agent/1.0",
		MaxWorkers:           4,
		MinCrawlDelaySeconds: 120,
		CandidatesPerScan:    7,
	}.WithDefaults()

	if c.UserAgent != "custom-agent/1.0" {
		t.Errorf("UserAgent overwritten: got %q", c.UserAgent)
	}
	if c.MaxWorkers != 4 {
		t.Errorf("MaxWorkers overwritten: got %d", c.MaxWorkers)
	}
	if c.MinCrawlDelaySeconds != 120 {
		t.Errorf("MinCrawlDelaySeconds overwritten: got %d", c.MinCrawlDelaySeconds)
	}
	if c.CandidatesPerScan != 7 {
		t.Errorf("CandidatesPerScan overwritten: got %d", c.CandidatesPerScan)
	}
}
