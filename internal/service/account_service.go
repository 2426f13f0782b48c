package service

import (
	"encoding/json"
	"fmt"

	"memberly/internal/models"
	"memberly/internal/repository"
	"memberly/pkg/payment"
	"memberly/pkg/secrets"
)

// AccountService handles creators' gateway accounts; credentials are sealed
// before they reach the database and opened only at call time.
type AccountService struct {
	accounts *repository.GatewayAccountRepository
	box      *secrets.Box
}

func NewAccountService(accounts *repository.GatewayAccountRepository, box *secrets.Box) *AccountService {
	return &AccountService{accounts: accounts, box: box}
}

// Resolve loads the creator's account for the gateway and decrypts its
// credentials. gateway == "" falls back to the caller-supplied default.
func (s *AccountService) Resolve(creatorID uint, gateway string) (*models.GatewayAccount, payment.Credentials, error) {
	account, err := s.accounts.GetForCreator(creatorID, gateway)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: no %s account for creator %d", payment.ErrConfiguration, gateway, creatorID)
	}
	creds, err := s.decrypt(account)
	if err != nil {
		return nil, nil, err
	}
	return account, creds, nil
}

func (s *AccountService) decrypt(account *models.GatewayAccount) (payment.Credentials, error) {
	plain, err := s.box.Open(account.CredentialsEnc)
	if err != nil {
		return nil, fmt.Errorf("%w: credentials for account %d unreadable", payment.ErrConfiguration, account.ID)
	}
	var creds payment.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, fmt.Errorf("%w: credentials for account %d malformed", payment.ErrConfiguration, account.ID)
	}
	return creds, nil
}

// Save seals and upserts credentials for a creator/gateway pair.
func (s *AccountService) Save(creatorID uint, gateway string, creds payment.Credentials, platformAccount string) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	enc, err := s.box.Seal(plain)
	if err != nil {
		return err
	}
	return s.accounts.Upsert(&models.GatewayAccount{
		CreatorID:       creatorID,
		Gateway:         gateway,
		CredentialsEnc:  enc,
		PlatformAccount: platformAccount,
		Active:          true,
	})
}
