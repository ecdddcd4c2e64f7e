package tokenizer

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"abcdefgh", 2},
	}

	for _, tt := range tests {
		if got := Estimate(tt.text); got != tt.want {
			t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestEstimateCounter(t *testing.T) {
	var c Counter = EstimateCounter{}
	if c.Count("twelve chars") != 3 {
		t.Errorf("Count = %d, want 3", c.Count("twelve chars"))
	}
}
