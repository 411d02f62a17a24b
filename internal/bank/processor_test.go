package bank_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/upisim/upig/internal/bank"
	"github.com/upisim/upig/internal/bank/store"
	"github.com/upisim/upig/internal/bank/store/filestore"
	"github.com/upisim/upig/internal/ledger"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	processor *bank.Processor
	accounts  *filestore.FileStore
	ledgers   *ledger.Registry
	ledgerDir string
}

func newFixture(t *testing.T, opts ...bank.ProcessorOption) *fixture {
	t.Helper()

	accounts, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, bank.SeedDefaultBanks(accounts))

	ledgerDir := t.TempDir()
	ledgers, err := ledger.NewRegistry(ledgerDir)
	require.NoError(t, err)

	opts = append(opts, bank.WithStats(bank.NewStats(prometheus.NewRegistry())))

	return &fixture{
		processor: bank.NewProcessor(newTestLogger(), accounts, ledgers, opts...),
		accounts:  accounts,
		ledgers:   ledgers,
		ledgerDir: ledgerDir,
	}
}

// blockLedgerSnapshot makes every snapshot rewrite for the named bank fail
// by occupying the temp path the chain persists through.
func blockLedgerSnapshot(t *testing.T, f *fixture, bankName, fileName string) {
	t.Helper()

	_, err := f.ledgers.Chain(bankName)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(f.ledgerDir, fileName+".tmp"), 0o755))
}

func registerAccounts(t *testing.T, f *fixture, userBalance float64) (uid string, mid string) {
	t.Helper()

	user, err := f.processor.RegisterUser("Asha", "SBIN0000001", "9876543210", "secret", "1234", userBalance)
	require.NoError(t, err)

	merchant, err := f.processor.RegisterMerchant("Chai Point", "SBIN0000001", "merchantpw", 0)
	require.NoError(t, err)

	return user.UID, merchant.MID
}

func TestRegisterUserHashesCredentials(t *testing.T) {
	// given
	f := newFixture(t)

	// when
	user, err := f.processor.RegisterUser("Asha", "SBIN0000001", "9876543210", "secret", "1234", 500)

	// then
	require.NoError(t, err)
	require.NotEmpty(t, user.UID)
	require.NotEmpty(t, user.MMID)
	require.NotEqual(t, "1234", user.PIN)
	require.NotEqual(t, "secret", user.Password)
	require.Len(t, user.UID, 16)
	require.Equal(t, user.UID, user.AccountNumber)
}

func TestRegisterUserIdentifiersUnique(t *testing.T) {
	// given two registrations at different seconds
	f := newFixture(t)
	ts := time.Unix(1700000000, 0)
	now := func() time.Time { return ts }
	f.processor = bank.NewProcessor(newTestLogger(), f.accounts, f.ledgers, bank.WithNow(func() time.Time { return now() }))

	first, err := f.processor.RegisterUser("Asha", "SBIN0000001", "9876543210", "secret", "1234", 0)
	require.NoError(t, err)

	// when
	now = func() time.Time { return ts.Add(time.Second) }
	second, err := f.processor.RegisterUser("Asha", "SBIN0000001", "9876543210", "secret", "1234", 0)

	// then
	require.NoError(t, err)
	require.NotEqual(t, first.UID, second.UID)
	require.NotEqual(t, first.MMID, second.MMID)
}

func TestRegisterUserUnknownBank(t *testing.T) {
	f := newFixture(t)

	_, err := f.processor.RegisterUser("Asha", "XXXX0000000", "9876543210", "secret", "1234", 0)
	require.ErrorIs(t, err, store.ErrUnknownBankCode)
}

func TestAuthenticate(t *testing.T) {
	// given
	f := newFixture(t)
	uid, _ := registerAccounts(t, f, 500)

	user, err := f.accounts.GetUser(uid)
	require.NoError(t, err)

	// then
	byUID, err := f.processor.Authenticate(uid, "", "secret")
	require.NoError(t, err)
	require.Equal(t, uid, byUID.UID)

	byMMID, err := f.processor.Authenticate("", user.MMID, "secret")
	require.NoError(t, err)
	require.Equal(t, uid, byMMID.UID)

	_, err = f.processor.Authenticate(uid, "", "wrong")
	require.ErrorIs(t, err, bank.ErrAuthenticationFailed)

	_, err = f.processor.Authenticate("", "unknown-mmid", "secret")
	require.ErrorIs(t, err, bank.ErrAuthenticationFailed)
}

func TestVerifyPIN(t *testing.T) {
	// given
	f := newFixture(t)
	uid, _ := registerAccounts(t, f, 500)

	// then
	require.NoError(t, f.processor.VerifyPIN(uid, "1234"))
	require.ErrorIs(t, f.processor.VerifyPIN(uid, "0000"), bank.ErrPINMismatch)
	require.ErrorIs(t, f.processor.VerifyPIN("nobody", "1234"), bank.ErrAuthenticationFailed)
}

func TestProcessTransactionCommitsAndAppends(t *testing.T) {
	// given user U with balance 500 paying merchant M amount 150
	f := newFixture(t)
	uid, mid := registerAccounts(t, f, 500)

	// when
	transactionID, err := f.processor.ProcessTransaction(uid, mid, 150, "groceries")

	// then
	require.NoError(t, err)
	require.Len(t, transactionID, 64)

	user, err := f.accounts.GetUser(uid)
	require.NoError(t, err)
	merchant, err := f.accounts.GetMerchant(mid)
	require.NoError(t, err)

	require.InDelta(t, 350, user.Balance, 1e-9)
	require.InDelta(t, 150, merchant.Balance, 1e-9)

	chain, err := f.ledgers.Chain("State Bank of India")
	require.NoError(t, err)
	require.Equal(t, 2, chain.Len())
	require.True(t, chain.Validate())

	blocks := chain.Blocks()
	require.Equal(t, transactionID, blocks[1].TransactionID)
	require.InDelta(t, 150, blocks[1].TransactionData.Amount, 1e-9)
}

func TestProcessTransactionCrossBankAppendsBothLedgers(t *testing.T) {
	// given payer and payee at different banks
	f := newFixture(t)

	user, err := f.processor.RegisterUser("Asha", "SBIN0000001", "9876543210", "secret", "1234", 500)
	require.NoError(t, err)

	merchant, err := f.processor.RegisterMerchant("Chai Point", "HDFC0000001", "merchantpw", 0)
	require.NoError(t, err)

	// when
	transactionID, err := f.processor.ProcessTransaction(user.UID, merchant.MID, 150, "")

	// then both bank ledgers gain the block
	require.NoError(t, err)

	for _, bankName := range []string{"State Bank of India", "HDFC Bank"} {
		chain, chainErr := f.ledgers.Chain(bankName)
		require.NoError(t, chainErr)
		require.Equal(t, 2, chain.Len())
		require.Equal(t, transactionID, chain.Blocks()[1].TransactionID)
	}
}

func TestProcessTransactionLedgerFailureReversesTransfer(t *testing.T) {
	// given a payer bank ledger whose snapshot can no longer be rewritten
	f := newFixture(t)
	uid, mid := registerAccounts(t, f, 500)
	blockLedgerSnapshot(t, f, "State Bank of India", "ledger_State_Bank_of_India.json")

	// when
	_, err := f.processor.ProcessTransaction(uid, mid, 150, "")

	// then the commit fails as a whole: balances restored, no block kept
	require.ErrorIs(t, err, ledger.ErrPersistFailed)

	user, err := f.accounts.GetUser(uid)
	require.NoError(t, err)
	merchant, err := f.accounts.GetMerchant(mid)
	require.NoError(t, err)

	require.InDelta(t, 500, user.Balance, 1e-9)
	require.InDelta(t, 0, merchant.Balance, 1e-9)

	chain, err := f.ledgers.Chain("State Bank of India")
	require.NoError(t, err)
	require.Equal(t, 1, chain.Len())
}

func TestProcessTransactionCrossBankPartialAppendUnwinds(t *testing.T) {
	// given payer and payee at different banks, with only the payee's
	// ledger unable to persist
	f := newFixture(t)

	user, err := f.processor.RegisterUser("Asha", "SBIN0000001", "9876543210", "secret", "1234", 500)
	require.NoError(t, err)

	merchant, err := f.processor.RegisterMerchant("Chai Point", "HDFC0000001", "merchantpw", 0)
	require.NoError(t, err)

	_, err = f.ledgers.Chain("State Bank of India")
	require.NoError(t, err)
	blockLedgerSnapshot(t, f, "HDFC Bank", "ledger_HDFC_Bank.json")

	// when
	_, err = f.processor.ProcessTransaction(user.UID, merchant.MID, 150, "")

	// then the payer's block is unwound along with the transfer
	require.ErrorIs(t, err, ledger.ErrPersistFailed)

	payer, err := f.accounts.GetUser(user.UID)
	require.NoError(t, err)
	payee, err := f.accounts.GetMerchant(merchant.MID)
	require.NoError(t, err)

	require.InDelta(t, 500, payer.Balance, 1e-9)
	require.InDelta(t, 0, payee.Balance, 1e-9)

	for _, bankName := range []string{"State Bank of India", "HDFC Bank"} {
		chain, chainErr := f.ledgers.Chain(bankName)
		require.NoError(t, chainErr)
		require.Equal(t, 1, chain.Len())
		require.True(t, chain.Validate())
	}
}

func TestProcessTransactionInsufficientBalance(t *testing.T) {
	// given user U with balance 100 attempting to pay 150
	f := newFixture(t)
	uid, mid := registerAccounts(t, f, 100)

	// when
	_, err := f.processor.ProcessTransaction(uid, mid, 150, "")

	// then balances unchanged, no ledger block appended
	require.ErrorIs(t, err, store.ErrInsufficientBalance)

	user, err2 := f.accounts.GetUser(uid)
	require.NoError(t, err2)
	require.InDelta(t, 100, user.Balance, 1e-9)

	chain, err2 := f.ledgers.Chain("State Bank of India")
	require.NoError(t, err2)
	require.Equal(t, 1, chain.Len())
}

func TestProcessTransactionNegativeAmount(t *testing.T) {
	f := newFixture(t)
	uid, mid := registerAccounts(t, f, 100)

	_, err := f.processor.ProcessTransaction(uid, mid, -5, "")
	require.ErrorIs(t, err, store.ErrInvalidAmount)
}

func TestProcessTransactionUnknownPayeeRejected(t *testing.T) {
	// given the auto-register fallback disabled
	f := newFixture(t)
	uid, _ := registerAccounts(t, f, 100)

	// when
	_, err := f.processor.ProcessTransaction(uid, "nobody", 10, "")

	// then
	require.ErrorIs(t, err, store.ErrReceiverNotFound)
}

func TestProcessTransactionAutoRegistersPayee(t *testing.T) {
	// given the auto-register fallback enabled
	f := newFixture(t, bank.WithAutoRegisterPayee(true))
	uid, _ := registerAccounts(t, f, 100)

	// when
	_, err := f.processor.ProcessTransaction(uid, "feedfacecafebeef", 10, "")

	// then a placeholder merchant received the funds
	require.NoError(t, err)

	merchant, err := f.accounts.GetMerchant("feedfacecafebeef")
	require.NoError(t, err)
	require.InDelta(t, 10, merchant.Balance, 1e-9)
}

func TestVerifyLedger(t *testing.T) {
	f := newFixture(t)
	uid, mid := registerAccounts(t, f, 500)

	_, err := f.processor.ProcessTransaction(uid, mid, 1, "")
	require.NoError(t, err)

	valid, err := f.processor.VerifyLedger("SBIN0000001")
	require.NoError(t, err)
	require.True(t, valid)
}

func TestUserTransactions(t *testing.T) {
	// given
	f := newFixture(t)
	uid, mid := registerAccounts(t, f, 500)

	_, err := f.processor.ProcessTransaction(uid, mid, 100, "first")
	require.NoError(t, err)
	_, err = f.processor.ProcessTransaction(uid, mid, 50, "second")
	require.NoError(t, err)

	// when
	transactions, err := f.processor.UserTransactions(uid)

	// then
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	require.InDelta(t, 100, transactions[0].Amount, 1e-9)
	require.InDelta(t, 50, transactions[1].Amount, 1e-9)
}
