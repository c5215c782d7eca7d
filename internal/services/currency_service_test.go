package services

import (
	"context"
	"strings"
	"testing"

	"github.com/a2h-store/api/internal/platform/prefs"
)

func newCurrencyServiceForTest(t *testing.T) CurrencyService {
	t.Helper()
	svc, err := NewCurrencyService(CurrencyServiceDeps{Prefs: prefs.NewMemoryStore()})
	if err != nil {
		t.Fatalf("NewCurrencyService: %v", err)
	}
	return svc
}

func TestCurrencyServiceConvert(t *testing.T) {
	svc := newCurrencyServiceForTest(t)

	tests := []struct {
		name   string
		amount float64
		code   string
		want   float64
	}{
		{name: "base currency is identity", amount: 104, code: "SAR", want: 104},
		{name: "usd rounds half up", amount: 104, code: "USD", want: 27.74},
		{name: "eur", amount: 104, code: "EUR", want: 25.48},
		{name: "kwd small rate", amount: 104, code: "KWD", want: 8.50},
		{name: "egp large rate", amount: 104, code: "EGP", want: 1372.80},
		{name: "lowercase code accepted", amount: 100, code: "usd", want: 26.67},
		{name: "unknown code keeps base amount", amount: 104, code: "XXX", want: 104},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Convert(tt.amount, tt.code); got != tt.want {
				t.Fatalf("Convert(%v, %q) = %v, want %v", tt.amount, tt.code, got, tt.want)
			}
		})
	}
}

func TestCurrencyServiceList(t *testing.T) {
	svc := newCurrencyServiceForTest(t)

	list := svc.List()
	if len(list) != 6 {
		t.Fatalf("List() returned %d currencies, want 6", len(list))
	}
	if list[0].Code != "SAR" {
		t.Fatalf("first currency = %q, want SAR", list[0].Code)
	}

	// The returned slice is a copy; mutating it must not leak into the table.
	list[0].Rate = 999
	if again := svc.List(); again[0].Rate != 1 {
		t.Fatalf("List() exposed internal table, rate = %v", again[0].Rate)
	}
}

func TestCurrencyServiceFormat(t *testing.T) {
	svc := newCurrencyServiceForTest(t)

	tests := []struct {
		name   string
		amount float64
		code   string
		locale string
		want   string
	}{
		{name: "sar suffix", amount: 104, code: "SAR", locale: "en", want: "104.00 ر.س"},
		{name: "usd prefix", amount: 27.74, code: "USD", locale: "en", want: "$27.74"},
		{name: "eur prefix", amount: 25.48, code: "EUR", locale: "en-US", want: "€25.48"},
		{name: "aed suffix", amount: 101.85, code: "AED", locale: "en", want: "101.85 د.إ"},
		{name: "unknown falls back to sar", amount: 10, code: "XXX", locale: "en", want: "10.00 ر.س"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Format(tt.amount, tt.code, tt.locale); got != tt.want {
				t.Fatalf("Format(%v, %q, %q) = %q, want %q", tt.amount, tt.code, tt.locale, got, tt.want)
			}
		})
	}

	t.Run("arabic locale localises digits", func(t *testing.T) {
		got := svc.Format(104, "SAR", "ar")
		if !strings.Contains(got, "ر.س") {
			t.Fatalf("Format() = %q, want riyal symbol", got)
		}
		if strings.Contains(got, "104.00") {
			t.Fatalf("Format() = %q, want localised digits for ar locale", got)
		}
	})
}

func TestCurrencyServiceSessionCurrency(t *testing.T) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	svc, err := NewCurrencyService(CurrencyServiceDeps{Prefs: store})
	if err != nil {
		t.Fatalf("NewCurrencyService: %v", err)
	}

	const session = "sess-currency"

	if got := svc.CurrentCurrency(ctx, session); got.Code != "SAR" {
		t.Fatalf("CurrentCurrency before choice = %q, want SAR", got.Code)
	}

	chosen, err := svc.SetCurrency(ctx, session, "usd")
	if err != nil {
		t.Fatalf("SetCurrency: %v", err)
	}
	if chosen.Code != "USD" {
		t.Fatalf("SetCurrency returned %q, want USD", chosen.Code)
	}
	if got := svc.CurrentCurrency(ctx, session); got.Code != "USD" {
		t.Fatalf("CurrentCurrency after choice = %q, want USD", got.Code)
	}

	// Unknown codes silently fall back to the base currency.
	chosen, err = svc.SetCurrency(ctx, session, "DOGE")
	if err != nil {
		t.Fatalf("SetCurrency with unknown code: %v", err)
	}
	if chosen.Code != "SAR" {
		t.Fatalf("SetCurrency(DOGE) returned %q, want SAR fallback", chosen.Code)
	}
	if got := svc.CurrentCurrency(ctx, session); got.Code != "SAR" {
		t.Fatalf("CurrentCurrency after fallback = %q, want SAR", got.Code)
	}
}
