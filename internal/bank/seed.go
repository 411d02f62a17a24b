package bank

import (
	"errors"

	"github.com/upisim/upig/internal/bank/store"
)

// SeedDefaultBanks registers the default bank branches a fresh bank process
// starts with. Codes already present in the registry are left untouched.
func SeedDefaultBanks(accounts store.AccountStore) error {
	seed := []store.Bank{
		{Code: "SBIN0000001", Name: "State Bank of India", Branches: []string{"Main Branch"}},
		{Code: "SBIN0000002", Name: "State Bank of India", Branches: []string{"City Branch"}},
		{Code: "SBIN0000003", Name: "State Bank of India", Branches: []string{"Metro Branch"}},
		{Code: "HDFC0000001", Name: "HDFC Bank", Branches: []string{"Main Branch"}},
		{Code: "HDFC0000002", Name: "HDFC Bank", Branches: []string{"City Branch"}},
		{Code: "HDFC0000003", Name: "HDFC Bank", Branches: []string{"Metro Branch"}},
		{Code: "ICIC0000001", Name: "ICICI Bank", Branches: []string{"Main Branch"}},
		{Code: "ICIC0000002", Name: "ICICI Bank", Branches: []string{"City Branch"}},
		{Code: "ICIC0000003", Name: "ICICI Bank", Branches: []string{"Metro Branch"}},
	}

	for i := range seed {
		err := accounts.RegisterBank(&seed[i])
		if err != nil && !errors.Is(err, store.ErrBankCodeTaken) {
			return err
		}
	}

	return nil
}
