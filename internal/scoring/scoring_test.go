package scoring

import "testing"

func TestHeuristicScore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		domain string
		want   int
	}{
		{"ab12.tld", 4},      // len 4 (+3), digit+letter (+1)
		{"demo1.tld", 1},     // digit+letter only
		{"1234.tld", 5},      // len<=4 (+3), all digits (+2)
		{"aa.tld", 4},        // len<=4 (+3), alpha with <=2 distinct (+1)
		{"aa11.tld", 4},      // len<=4 (+3), mixed (+1); not all-alpha
		{"abab.tld", 4},      // len<=4 (+3), 2 distinct letters (+1)
		{"abc.tld", 3},       // len<=4 only; 3 distinct letters miss the repeat bonus
		{"longname.tld", 0},  // nothing applies
		{"12345.tld", 2},     // all digits only
		{"a1b2c3d4.tld", 1},  // mixed only
		{"ABAB.example", 4},  // case-folded before checks
		{"xy", 4},            // no dot: whole name is the label
		{"", 3},              // empty label: len 0 <= 4
		{"a-b1.tld", 4},      // len<=4, digit+letter (hyphen blocks alpha bonus)
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.domain, func(t *testing.T) {
			t.Parallel()
			if got := HeuristicScore(tt.domain); got != tt.want {
				t.Fatalf("HeuristicScore(%q) = %d, want %d", tt.domain, got, tt.want)
			}
		})
	}
}

func TestHeuristicScorePure(t *testing.T) {
	t.Parallel()
	first := HeuristicScore("aa11.tld")
	for i := 0; i < 100; i++ {
		if got := HeuristicScore("aa11.tld"); got != first {
			t.Fatalf("call %d returned %d, first returned %d", i, got, first)
		}
	}
}
