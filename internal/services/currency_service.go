package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/a2h-store/api/internal/platform/prefs"
)

// BaseCurrencyCode is the currency all catalog prices are stored in.
const BaseCurrencyCode = "SAR"

// The conversion table is fixed at deployment time. Rates are multiplicative
// factors applied to base-currency amounts.
var currencyTable = []Currency{
	{Code: "SAR", Symbol: "ر.س", Name: "Saudi Riyal", NameAr: "ريال سعودي", Rate: 1},
	{Code: "USD", Symbol: "$", Name: "US Dollar", NameAr: "دولار أمريكي", Rate: 0.2667},
	{Code: "EUR", Symbol: "€", Name: "Euro", NameAr: "يورو", Rate: 0.2450},
	{Code: "AED", Symbol: "د.إ", Name: "UAE Dirham", NameAr: "درهم إماراتي", Rate: 0.9793},
	{Code: "KWD", Symbol: "د.ك", Name: "Kuwaiti Dinar", NameAr: "دينار كويتي", Rate: 0.0817},
	{Code: "EGP", Symbol: "ج.م", Name: "Egyptian Pound", NameAr: "جنيه مصري", Rate: 13.20},
}

// Currencies whose symbol conventionally precedes the amount.
var prefixSymbolCodes = map[string]struct{}{
	"USD": {},
	"EUR": {},
}

// CurrencyServiceDeps wires the dependencies required by the currency service.
type CurrencyServiceDeps struct {
	Prefs  prefs.Store
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type currencyService struct {
	prefs  prefs.Store
	logger func(ctx context.Context, event string, fields map[string]any)

	byCode map[string]Currency
}

var _ CurrencyService = (*currencyService)(nil)

// NewCurrencyService constructs a CurrencyService backed by the fixed table.
func NewCurrencyService(deps CurrencyServiceDeps) (CurrencyService, error) {
	if deps.Prefs == nil {
		return nil, errors.New("currency service: prefs store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	byCode := make(map[string]Currency, len(currencyTable))
	for _, c := range currencyTable {
		byCode[c.Code] = c
	}

	return &currencyService{
		prefs:  deps.Prefs,
		logger: logger,
		byCode: byCode,
	}, nil
}

// List returns the supported currencies in display order.
func (s *currencyService) List() []Currency {
	out := make([]Currency, len(currencyTable))
	copy(out, currencyTable)
	return out
}

// Get looks up a currency by its ISO code.
func (s *currencyService) Get(code string) (Currency, bool) {
	c, ok := s.byCode[normaliseCurrencyCode(code)]
	return c, ok
}

// Convert translates a base-currency amount to the target currency, rounded
// to two decimal places. Unknown codes convert at the base rate.
func (s *currencyService) Convert(amountSAR float64, code string) float64 {
	rate := 1.0
	if c, ok := s.Get(code); ok {
		rate = c.Rate
	}
	return math.Round(amountSAR*rate*100) / 100
}

// Format renders an amount with the currency symbol, localising digits for
// Arabic shoppers.
func (s *currencyService) Format(amount float64, code string, locale string) string {
	currency, ok := s.Get(code)
	if !ok {
		currency = s.byCode[BaseCurrencyCode]
	}

	tag := language.English
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(locale)), "ar") {
		tag = language.Arabic
	}
	printer := message.NewPrinter(tag)
	formatted := printer.Sprintf("%.2f", amount)

	if _, prefix := prefixSymbolCodes[currency.Code]; prefix {
		return currency.Symbol + formatted
	}
	return formatted + " " + currency.Symbol
}

// SetCurrency stores the session's display currency. Unknown codes fall back
// to the base currency without surfacing an error.
func (s *currencyService) SetCurrency(ctx context.Context, sessionID, code string) (Currency, error) {
	currency, ok := s.Get(code)
	if !ok {
		s.logger(ctx, "currency.unknown_code", map[string]any{
			"code": code,
		})
		currency = s.byCode[BaseCurrencyCode]
	}

	if err := prefs.SetJSON(ctx, s.prefs, sessionID, prefs.KeyCurrency, currency.Code); err != nil {
		return Currency{}, err
	}
	return currency, nil
}

// CurrentCurrency returns the session's display currency, defaulting to the
// base currency when none was chosen.
func (s *currencyService) CurrentCurrency(ctx context.Context, sessionID string) Currency {
	code, err := prefs.GetJSON[string](ctx, s.prefs, sessionID, prefs.KeyCurrency)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) {
			s.logger(ctx, "currency.prefs_read_failed", map[string]any{
				"error": err.Error(),
			})
		}
		return s.byCode[BaseCurrencyCode]
	}
	if currency, ok := s.Get(code); ok {
		return currency
	}
	return s.byCode[BaseCurrencyCode]
}

func normaliseCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// roundMoney rounds to two decimal places, matching how converted amounts
// are displayed and persisted.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
