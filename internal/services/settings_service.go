package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	domain "github.com/a2h-store/api/internal/domain"
	"github.com/a2h-store/api/internal/repositories"
)

var (
	// ErrSettingsInvalidInput signals malformed bank-transfer details.
	ErrSettingsInvalidInput = errors.New("settings: invalid input")
	// ErrSettingsUnavailable wraps infrastructure failures.
	ErrSettingsUnavailable = errors.New("settings: temporarily unavailable")
)

const (
	maxAccountNameLength = 120
	minIBANLength        = 8
	maxIBANLength        = 34
)

// SettingsServiceDeps wires the settings service dependencies.
type SettingsServiceDeps struct {
	Settings repositories.SettingsRepository
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type settingsService struct {
	settings repositories.SettingsRepository
	clock    func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewSettingsService constructs the bank-transfer settings service.
func NewSettingsService(deps SettingsServiceDeps) (SettingsService, error) {
	if deps.Settings == nil {
		return nil, errors.New("settings: settings repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &settingsService{settings: deps.Settings, clock: clock, logger: logger}, nil
}

var _ SettingsService = (*settingsService)(nil)

func (s *settingsService) Settings(ctx context.Context) (StoreSettings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			// A fresh store has no settings document yet.
			return StoreSettings{}, nil
		}
		s.logger(ctx, "settings.get_failed", map[string]any{"error": err.Error()})
		return StoreSettings{}, ErrSettingsUnavailable
	}
	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (StoreSettings, error) {
	accountName := strings.TrimSpace(cmd.AccountName)
	if accountName == "" {
		return StoreSettings{}, fmt.Errorf("%w: account name is required", ErrSettingsInvalidInput)
	}
	if len(accountName) > maxAccountNameLength {
		return StoreSettings{}, fmt.Errorf("%w: account name exceeds %d characters", ErrSettingsInvalidInput, maxAccountNameLength)
	}
	iban, err := normaliseIBAN(cmd.IBAN)
	if err != nil {
		return StoreSettings{}, err
	}

	saved, err := s.settings.Save(ctx, domain.StoreSettings{
		AccountName: accountName,
		IBAN:        iban,
		UpdatedAt:   s.clock().UTC(),
	})
	if err != nil {
		s.logger(ctx, "settings.save_failed", map[string]any{"error": err.Error()})
		return StoreSettings{}, ErrSettingsUnavailable
	}
	s.logger(ctx, "settings.updated", map[string]any{"actor_id": cmd.ActorID})
	return saved, nil
}

// normaliseIBAN strips spaces, upper-cases, and checks the IBAN shape:
// two letters, two digits, then alphanumerics up to 34 characters total.
func normaliseIBAN(raw string) (string, error) {
	iban := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if len(iban) < minIBANLength || len(iban) > maxIBANLength {
		return "", fmt.Errorf("%w: iban must be %d-%d characters", ErrSettingsInvalidInput, minIBANLength, maxIBANLength)
	}
	for i, r := range iban {
		switch {
		case i < 2 && !unicode.IsUpper(r):
			return "", fmt.Errorf("%w: iban must start with a country code", ErrSettingsInvalidInput)
		case i >= 2 && i < 4 && !unicode.IsDigit(r):
			return "", fmt.Errorf("%w: iban check digits are malformed", ErrSettingsInvalidInput)
		case !unicode.IsUpper(r) && !unicode.IsDigit(r):
			return "", fmt.Errorf("%w: iban contains invalid characters", ErrSettingsInvalidInput)
		}
	}
	return iban, nil
}
