package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
)

func newSettingsServiceForTest(t *testing.T, repo *stubSettingsRepo) SettingsService {
	t.Helper()
	svc, err := NewSettingsService(SettingsServiceDeps{
		Settings: repo,
		Clock:    func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewSettingsService: %v", err)
	}
	return svc
}

func TestSettingsServiceSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored settings", func(t *testing.T) {
		repo := &stubSettingsRepo{getFn: func(context.Context) (domain.StoreSettings, error) {
			return domain.StoreSettings{AccountName: "A2H Store WLL", IBAN: "BH67BMAG00001299123456"}, nil
		}}
		svc := newSettingsServiceForTest(t, repo)

		settings, err := svc.Settings(ctx)
		if err != nil {
			t.Fatalf("Settings: %v", err)
		}
		if settings.IBAN != "BH67BMAG00001299123456" {
			t.Fatalf("IBAN = %q, want stored value", settings.IBAN)
		}
	})

	t.Run("fresh store has empty settings", func(t *testing.T) {
		svc := newSettingsServiceForTest(t, &stubSettingsRepo{})

		settings, err := svc.Settings(ctx)
		if err != nil {
			t.Fatalf("Settings: %v", err)
		}
		if settings.AccountName != "" || settings.IBAN != "" {
			t.Fatalf("settings = %+v, want zero value", settings)
		}
	})

	t.Run("infrastructure failure", func(t *testing.T) {
		repo := &stubSettingsRepo{getFn: func(context.Context) (domain.StoreSettings, error) {
			return domain.StoreSettings{}, errors.New("firestore unreachable")
		}}
		svc := newSettingsServiceForTest(t, repo)

		if _, err := svc.Settings(ctx); !errors.Is(err, ErrSettingsUnavailable) {
			t.Fatalf("Settings error = %v, want %v", err, ErrSettingsUnavailable)
		}
	})
}

func TestSettingsServiceUpdateSettings(t *testing.T) {
	ctx := context.Background()

	t.Run("normalises and saves", func(t *testing.T) {
		var saved domain.StoreSettings
		repo := &stubSettingsRepo{saveFn: func(_ context.Context, s domain.StoreSettings) (domain.StoreSettings, error) {
			saved = s
			return s, nil
		}}
		svc := newSettingsServiceForTest(t, repo)

		settings, err := svc.UpdateSettings(ctx, UpdateSettingsCommand{
			AccountName: "  A2H Store WLL ",
			IBAN:        "bh67 bmag 0000 1299 1234 56",
			ActorID:     "admin-1",
		})
		if err != nil {
			t.Fatalf("UpdateSettings: %v", err)
		}
		if settings.AccountName != "A2H Store WLL" {
			t.Fatalf("AccountName = %q, want trimmed name", settings.AccountName)
		}
		if settings.IBAN != "BH67BMAG00001299123456" {
			t.Fatalf("IBAN = %q, want compact uppercase", settings.IBAN)
		}
		if saved.UpdatedAt.IsZero() {
			t.Fatal("saved settings missing UpdatedAt")
		}
	})

	t.Run("rejections", func(t *testing.T) {
		svc := newSettingsServiceForTest(t, &stubSettingsRepo{})

		tests := []struct {
			name string
			cmd  UpdateSettingsCommand
		}{
			{name: "blank account name", cmd: UpdateSettingsCommand{IBAN: "BH67BMAG00001299123456"}},
			{name: "iban too short", cmd: UpdateSettingsCommand{AccountName: "A2H", IBAN: "BH67"}},
			{name: "iban without country code", cmd: UpdateSettingsCommand{AccountName: "A2H", IBAN: "1267BMAG00001299123456"}},
			{name: "iban with bad check digits", cmd: UpdateSettingsCommand{AccountName: "A2H", IBAN: "BHX7BMAG00001299123456"}},
			{name: "iban with punctuation", cmd: UpdateSettingsCommand{AccountName: "A2H", IBAN: "BH67-BMAG-0000-1299-1234"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := svc.UpdateSettings(ctx, tt.cmd); !errors.Is(err, ErrSettingsInvalidInput) {
					t.Fatalf("UpdateSettings() error = %v, want %v", err, ErrSettingsInvalidInput)
				}
			})
		}
	})
}
