package validation

import "testing"

func TestToCents_RoundsDecimalAmounts(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{19.99, 1999},
		{29.99, 2999},
		{1.13, 113},
		{0.07, 7},
		{150.50, 15050},
		{0, 0},
		{100, 10000},
	}

	for _, tt := range tests {
		if got := ToCents(tt.amount); got != tt.want {
			t.Fatalf("ToCents(%v) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestIsValidCurrency(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"INR", true},
		{"USD", true},
		{"EUR", true},
		{"inr", false},
		{"RUB", false},
		{"IN", false},
		{"INRR", false},
		{"", false},
		{"I1R", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsValidCurrency(tt.code); got != tt.want {
				t.Fatalf("IsValidCurrency(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalizeCurrency(t *testing.T) {
	if got := NormalizeCurrency("  inr "); got != "INR" {
		t.Fatalf("NormalizeCurrency = %q, want INR", got)
	}
}

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		ceiling int64
		want    bool
	}{
		{"positive within ceiling", 100, 1000, true},
		{"equal to ceiling", 1000, 1000, true},
		{"zero", 0, 1000, false},
		{"negative", -5, 1000, false},
		{"above ceiling", 1001, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidAmount(tt.amount, tt.ceiling); got != tt.want {
				t.Fatalf("IsValidAmount(%d, %d) = %v, want %v", tt.amount, tt.ceiling, got, tt.want)
			}
		})
	}
}
