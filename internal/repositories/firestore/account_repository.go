package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/g1food/api/internal/domain"
	pfirestore "github.com/g1food/api/internal/platform/firestore"
	"github.com/g1food/api/internal/repositories"
)

const accountsCollection = "accounts"

type accountDocument struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email,omitempty"`
	Phone     string    `firestore:"phone,omitempty"`
	Address   string    `firestore:"address,omitempty"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// AccountRepository reads platform accounts from Firestore. Provisioning is
// owned by the account system; this service never writes here.
type AccountRepository struct {
	base *pfirestore.BaseRepository[accountDocument]
}

// NewAccountRepository constructs a Firestore-backed account reader.
func NewAccountRepository(provider *pfirestore.Provider) (*AccountRepository, error) {
	if provider == nil {
		return nil, errors.New("account repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[accountDocument](provider, accountsCollection, nil, nil)
	return &AccountRepository{base: base}, nil
}

// FindByID loads a single account.
func (r *AccountRepository) FindByID(ctx context.Context, accountID string) (domain.Account, error) {
	if r == nil || r.base == nil {
		return domain.Account{}, errors.New("account repository not initialised")
	}
	id := strings.TrimSpace(accountID)
	if id == "" {
		return domain.Account{}, errors.New("account repository: account id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{
		ID:        doc.ID,
		Name:      doc.Data.Name,
		Email:     doc.Data.Email,
		Phone:     doc.Data.Phone,
		Address:   doc.Data.Address,
		Status:    domain.AccountStatus(doc.Data.Status),
		CreatedAt: doc.Data.CreatedAt,
		UpdatedAt: doc.Data.UpdatedAt,
	}, nil
}

var _ repositories.AccountRepository = (*AccountRepository)(nil)
