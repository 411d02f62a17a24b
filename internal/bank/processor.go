// Package bank implements the bank authority: the account registry,
// credential checks and the ledger-commit step of the payment flow.
package bank

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/upisim/upig/internal/bank/store"
	"github.com/upisim/upig/internal/ledger"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrPINMismatch          = errors.New("PIN verification failed")
)

// shortHash is the identifier/credential digest used across the registry:
// the leading 16 hex characters of a SHA-256.
func shortHash(input string) string {
	digest := sha256.Sum256([]byte(input))
	return hex.EncodeToString(digest[:])[:16]
}

// Processor owns every bank-side operation. All registry and ledger mutation
// goes through the injected store and registry, which serialize internally.
type Processor struct {
	logger   *slog.Logger
	accounts store.AccountStore
	ledgers  *ledger.Registry

	autoRegisterPayee bool
	stats             *Stats
	now               func() time.Time
}

func NewProcessor(logger *slog.Logger, accounts store.AccountStore, ledgers *ledger.Registry, opts ...ProcessorOption) *Processor {
	p := &Processor{
		logger:   logger.With(slog.String("module", "bank")),
		accounts: accounts,
		ledgers:  ledgers,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type ProcessorOption func(*Processor)

// WithAutoRegisterPayee enables the fallback policy of registering a
// placeholder merchant when a transaction names an unknown payee.
func WithAutoRegisterPayee(enabled bool) ProcessorOption {
	return func(p *Processor) {
		p.autoRegisterPayee = enabled
	}
}

func WithStats(stats *Stats) ProcessorOption {
	return func(p *Processor) {
		p.stats = stats
	}
}

func WithNow(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// RegisterUser creates a user with a derived permanent identifier, a
// mobile-linked alias identifier and hashed credentials. Only the hashes are
// stored.
func (p *Processor) RegisterUser(name, bankCode, mobileNumber, password, pin string, initialBalance float64) (*store.User, error) {
	_, err := p.accounts.GetBank(bankCode)
	if err != nil {
		return nil, store.ErrUnknownBankCode
	}

	timestamp := strconv.FormatInt(p.now().Unix(), 10)
	uid := shortHash(name + timestamp + password)
	mmid := shortHash(uid + mobileNumber)

	user := &store.User{
		UID:           uid,
		Name:          name,
		MMID:          mmid,
		PIN:           shortHash(pin),
		AccountNumber: uid,
		BankCode:      bankCode,
		MobileNumber:  mobileNumber,
		Password:      shortHash(password),
		Balance:       initialBalance,
	}

	err = p.accounts.UpsertUser(user)
	if err != nil {
		return nil, err
	}

	if p.stats != nil {
		p.stats.registrations.WithLabelValues("user").Inc()
	}

	p.logger.Info("Registered user", slog.String("uid", uid), slog.String("bankCode", bankCode))
	return user, nil
}

func (p *Processor) RegisterMerchant(name, bankCode, password string, initialBalance float64) (*store.Merchant, error) {
	_, err := p.accounts.GetBank(bankCode)
	if err != nil {
		return nil, store.ErrUnknownBankCode
	}

	timestamp := strconv.FormatInt(p.now().Unix(), 10)
	mid := shortHash(name + timestamp + password)

	merchant := &store.Merchant{
		MID:           mid,
		Name:          name,
		AccountNumber: mid,
		BankCode:      bankCode,
		Balance:       initialBalance,
	}

	err = p.accounts.UpsertMerchant(merchant)
	if err != nil {
		return nil, err
	}

	if p.stats != nil {
		p.stats.registrations.WithLabelValues("merchant").Inc()
	}

	p.logger.Info("Registered merchant", slog.String("mid", mid), slog.String("bankCode", bankCode))
	return merchant, nil
}

// Authenticate resolves the user by permanent or alias identifier and checks
// the password hash.
func (p *Processor) Authenticate(uid, mmid, password string) (*store.User, error) {
	var (
		user *store.User
		err  error
	)

	if uid != "" {
		user, err = p.accounts.GetUser(uid)
	} else {
		user, err = p.accounts.GetUserByMMID(mmid)
	}
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	if user.Password != shortHash(password) {
		return nil, ErrAuthenticationFailed
	}

	return user, nil
}

// VerifyPIN compares the hash of the supplied PIN against the stored hash.
// On mismatch the payment flow terminates before any transaction request is
// sent.
func (p *Processor) VerifyPIN(uid, pin string) error {
	user, err := p.accounts.GetUser(uid)
	if err != nil {
		return ErrAuthenticationFailed
	}

	if user.PIN != shortHash(pin) {
		return ErrPINMismatch
	}

	return nil
}

// ProcessTransaction validates and commits one funds transfer, then appends
// the block to the payer's bank ledger and, when different, the payee's.
// The transfer and the appends commit together: a ledger failure after the
// balances moved reverses the transfer and unwinds any block already
// appended, so no error leaves the payer debited.
func (p *Processor) ProcessTransaction(senderID, receiverID string, amount float64, description string) (string, error) {
	_, err := p.accounts.GetMerchant(receiverID)
	if errors.Is(err, store.ErrNotFound) && p.autoRegisterPayee {
		err = p.autoRegisterMerchant(senderID, receiverID)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	// open both chains before touching balances so a chain that cannot load
	// rejects the transaction instead of stranding a committed transfer
	senderChain, receiverChain, err := p.chainsFor(senderID, receiverID)
	if err != nil {
		if p.stats != nil {
			p.stats.transactionsRejected.Inc()
		}
		return "", err
	}

	now := p.now()
	transactionID := ledger.TransactionID(senderID, receiverID, amount, now)

	_, err = p.accounts.Transfer(senderID, receiverID, amount)
	if err != nil {
		if p.stats != nil {
			p.stats.transactionsRejected.Inc()
		}
		return "", err
	}

	data := ledger.TransactionData{
		TransactionID: transactionID,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Amount:        amount,
		Description:   description,
		Timestamp:     now.Unix(),
	}

	_, err = senderChain.Append(transactionID, data)
	if err != nil {
		p.reverseTransfer(senderID, receiverID, amount, transactionID)
		return "", err
	}

	if receiverChain != nil {
		_, err = receiverChain.Append(transactionID, data)
		if err != nil {
			dropErr := senderChain.DropTail(transactionID)
			if dropErr != nil {
				p.logger.Error("Failed to unwind payer ledger block",
					slog.String("transactionId", transactionID),
					slog.String("err", dropErr.Error()),
				)
			}
			p.reverseTransfer(senderID, receiverID, amount, transactionID)
			return "", err
		}
	}

	if p.stats != nil {
		p.stats.transactionsProcessed.Inc()
	}

	p.logger.Info("Processed transaction",
		slog.String("transactionId", transactionID),
		slog.Float64("amount", amount),
	)

	return transactionID, nil
}

func (p *Processor) autoRegisterMerchant(senderID, receiverID string) error {
	sender, err := p.accounts.GetUser(senderID)
	if err != nil {
		return store.ErrSenderNotFound
	}

	p.logger.Warn("Auto-registering unknown payee", slog.String("mid", receiverID))

	return p.accounts.UpsertMerchant(&store.Merchant{
		MID:           receiverID,
		Name:          fmt.Sprintf("Auto-registered merchant %.6s", receiverID),
		AccountNumber: receiverID,
		BankCode:      sender.BankCode,
	})
}

// chainsFor opens the payer's bank ledger and, when the payee banks
// elsewhere, the payee's. The second chain is nil when both parties share a
// bank.
func (p *Processor) chainsFor(senderID, receiverID string) (*ledger.Chain, *ledger.Chain, error) {
	sender, err := p.accounts.GetUser(senderID)
	if err != nil {
		return nil, nil, store.ErrSenderNotFound
	}

	receiver, err := p.accounts.GetMerchant(receiverID)
	if err != nil {
		return nil, nil, store.ErrReceiverNotFound
	}

	senderBankName, err := p.bankName(sender.BankCode)
	if err != nil {
		return nil, nil, err
	}

	senderChain, err := p.ledgers.Chain(senderBankName)
	if err != nil {
		return nil, nil, err
	}

	receiverBankName, err := p.bankName(receiver.BankCode)
	if err != nil {
		return nil, nil, err
	}

	if receiverBankName == senderBankName {
		return senderChain, nil, nil
	}

	receiverChain, err := p.ledgers.Chain(receiverBankName)
	if err != nil {
		return nil, nil, err
	}

	return senderChain, receiverChain, nil
}

func (p *Processor) reverseTransfer(senderID, receiverID string, amount float64, transactionID string) {
	err := p.accounts.ReverseTransfer(senderID, receiverID, amount)
	if err != nil {
		p.logger.Error("Failed to reverse transfer after ledger failure",
			slog.String("transactionId", transactionID),
			slog.String("err", err.Error()),
		)
	}
}

func (p *Processor) bankName(code string) (string, error) {
	bank, err := p.accounts.GetBank(code)
	if err != nil {
		return "", err
	}
	return bank.Name, nil
}

// MerchantInfo answers the terminal's merchant lookup.
func (p *Processor) MerchantInfo(mid string) (*store.Merchant, error) {
	return p.accounts.GetMerchant(mid)
}

// VerifyLedger runs the integrity scan over the ledger of the bank owning
// the given code.
func (p *Processor) VerifyLedger(bankCode string) (bool, error) {
	name, err := p.bankName(bankCode)
	if err != nil {
		return false, err
	}

	chain, err := p.ledgers.Chain(name)
	if err != nil {
		return false, err
	}

	return chain.Validate(), nil
}

// UserTransactions lists the committed transactions touching the given user,
// read back from the user's bank ledger.
func (p *Processor) UserTransactions(uid string) ([]ledger.TransactionData, error) {
	user, err := p.accounts.GetUser(uid)
	if err != nil {
		return nil, err
	}

	name, err := p.bankName(user.BankCode)
	if err != nil {
		return nil, err
	}

	chain, err := p.ledgers.Chain(name)
	if err != nil {
		return nil, err
	}

	var transactions []ledger.TransactionData
	for _, block := range chain.Blocks() {
		if block.TransactionID == ledger.GenesisID {
			continue
		}
		if block.TransactionData.SenderID == uid || block.TransactionData.ReceiverID == uid {
			transactions = append(transactions, block.TransactionData)
		}
	}

	return transactions, nil
}
