package firestore

import (
	"context"
	"errors"
	"time"

	domain "github.com/a2h-store/api/internal/domain"
	pfirestore "github.com/a2h-store/api/internal/platform/firestore"
)

const (
	settingsCollection = "settings"
	settingsDocumentID = "store"
)

// SettingsRepository stores the singleton bank-transfer settings document.
type SettingsRepository struct {
	base *pfirestore.Collection[settingsDocument]
}

// NewSettingsRepository constructs a Firestore-backed settings repository.
func NewSettingsRepository(provider *pfirestore.Provider) (*SettingsRepository, error) {
	if provider == nil {
		return nil, errors.New("settings repository: firestore provider is required")
	}
	base := pfirestore.NewCollection[settingsDocument](provider, settingsCollection, nil, nil)
	return &SettingsRepository{base: base}, nil
}

// Get fetches the bank-transfer settings shown at checkout.
func (r *SettingsRepository) Get(ctx context.Context) (domain.StoreSettings, error) {
	if r == nil || r.base == nil {
		return domain.StoreSettings{}, errors.New("settings repository not initialised")
	}
	doc, err := r.base.Get(ctx, settingsDocumentID)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	return domain.StoreSettings{
		AccountName: doc.Data.AccountName,
		IBAN:        doc.Data.IBAN,
		UpdatedAt:   doc.Data.UpdatedAt,
	}, nil
}

// Save replaces the bank-transfer settings.
func (r *SettingsRepository) Save(ctx context.Context, settings domain.StoreSettings) (domain.StoreSettings, error) {
	if r == nil || r.base == nil {
		return domain.StoreSettings{}, errors.New("settings repository not initialised")
	}
	doc := settingsDocument{
		AccountName: settings.AccountName,
		IBAN:        settings.IBAN,
		UpdatedAt:   settings.UpdatedAt.UTC(),
	}
	if _, err := r.base.Set(ctx, settingsDocumentID, doc); err != nil {
		return domain.StoreSettings{}, err
	}
	settings.UpdatedAt = doc.UpdatedAt
	return settings, nil
}

type settingsDocument struct {
	AccountName string    `firestore:"accountName"`
	IBAN        string    `firestore:"iban"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}
