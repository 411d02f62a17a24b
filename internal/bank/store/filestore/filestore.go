// Package filestore implements the account registry on flat JSON snapshots,
// one file per identity kind, rewritten in full on every mutation.
package filestore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/upisim/upig/internal/bank/store"
)

const (
	usersFile     = "users.json"
	merchantsFile = "merchants.json"
	banksFile     = "banks.json"
)

var ErrSnapshotFailed = errors.New("failed to read or write registry snapshot")

var _ store.AccountStore = (*FileStore)(nil)

// FileStore keeps the registry in memory under one RW mutex and mirrors every
// mutation to the snapshot files. The single mutex serializes all mutations,
// which makes per-account balance updates linearizable.
type FileStore struct {
	mu  sync.RWMutex
	dir string

	users     map[string]*store.User
	merchants map[string]*store.Merchant
	banks     map[string]*store.Bank
	mmidToUID map[string]string
}

func New(dir string) (*FileStore, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, errors.Join(ErrSnapshotFailed, err)
	}

	s := &FileStore{
		dir:       dir,
		users:     map[string]*store.User{},
		merchants: map[string]*store.Merchant{},
		banks:     map[string]*store.Bank{},
		mmidToUID: map[string]string{},
	}

	err = loadSnapshot(filepath.Join(dir, usersFile), &s.users)
	if err != nil {
		return nil, err
	}
	err = loadSnapshot(filepath.Join(dir, merchantsFile), &s.merchants)
	if err != nil {
		return nil, err
	}
	err = loadSnapshot(filepath.Join(dir, banksFile), &s.banks)
	if err != nil {
		return nil, err
	}

	for uid, user := range s.users {
		if user.MMID != "" {
			s.mmidToUID[user.MMID] = uid
		}
	}

	return s, nil
}

func (s *FileStore) UpsertUser(user *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.banks[user.BankCode]; !found {
		return store.ErrUnknownBankCode
	}

	s.users[user.UID] = user
	if user.MMID != "" {
		s.mmidToUID[user.MMID] = user.UID
	}

	return s.persistUsers()
}

func (s *FileStore) GetUser(uid string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, found := s.users[uid]
	if !found {
		return nil, store.ErrNotFound
	}

	clone := *user
	return &clone, nil
}

func (s *FileStore) GetUserByMMID(mmid string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uid, found := s.mmidToUID[mmid]
	if !found {
		return nil, store.ErrNotFound
	}

	clone := *s.users[uid]
	return &clone, nil
}

func (s *FileStore) Users() []*store.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*store.User, 0, len(s.users))
	for _, user := range s.users {
		clone := *user
		users = append(users, &clone)
	}
	return users
}

func (s *FileStore) UpsertMerchant(merchant *store.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.banks[merchant.BankCode]; !found {
		return store.ErrUnknownBankCode
	}

	s.merchants[merchant.MID] = merchant
	return s.persistMerchants()
}

func (s *FileStore) GetMerchant(mid string) (*store.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merchant, found := s.merchants[mid]
	if !found {
		return nil, store.ErrNotFound
	}

	clone := *merchant
	return &clone, nil
}

func (s *FileStore) Merchants() []*store.Merchant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merchants := make([]*store.Merchant, 0, len(s.merchants))
	for _, merchant := range s.merchants {
		clone := *merchant
		merchants = append(merchants, &clone)
	}
	return merchants
}

func (s *FileStore) RegisterBank(bank *store.Bank) error {
	err := store.ValidateBankCode(bank.Code)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.banks[bank.Code]; found {
		return store.ErrBankCodeTaken
	}

	s.banks[bank.Code] = bank
	return s.persistBanks()
}

func (s *FileStore) GetBank(code string) (*store.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bank, found := s.banks[code]
	if !found {
		return nil, store.ErrNotFound
	}

	clone := *bank
	return &clone, nil
}

func (s *FileStore) Banks() []*store.Bank {
	s.mu.RLock()
	defer s.mu.RUnlock()

	banks := make([]*store.Bank, 0, len(s.banks))
	for _, bank := range s.banks {
		clone := *bank
		banks = append(banks, &clone)
	}
	return banks
}

func (s *FileStore) Transfer(senderUID, receiverMID string, amount float64) (*store.TransferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, found := s.users[senderUID]
	if !found {
		return nil, store.ErrSenderNotFound
	}

	receiver, found := s.merchants[receiverMID]
	if !found {
		return nil, store.ErrReceiverNotFound
	}

	if amount < 0 {
		return nil, store.ErrInvalidAmount
	}

	if sender.Balance < amount {
		return nil, store.ErrInsufficientBalance
	}

	err := s.moveBalance(sender, receiver, amount)
	if err != nil {
		return nil, err
	}

	return &store.TransferResult{
		SenderBankCode:   sender.BankCode,
		ReceiverBankCode: receiver.BankCode,
	}, nil
}

// ReverseTransfer undoes a committed transfer by moving the amount back from
// the merchant to the user. The bank calls it when the ledger append that
// follows a transfer cannot complete.
func (s *FileStore) ReverseTransfer(senderUID, receiverMID string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, found := s.users[senderUID]
	if !found {
		return store.ErrSenderNotFound
	}

	receiver, found := s.merchants[receiverMID]
	if !found {
		return store.ErrReceiverNotFound
	}

	return s.moveBalance(sender, receiver, -amount)
}

// moveBalance applies the debit+credit pair and persists both snapshots.
// On any persist failure both balances are rolled back in memory and any
// snapshot already rewritten is restored, so disk never holds a half-applied
// transfer across a restart. Callers hold s.mu.
func (s *FileStore) moveBalance(sender *store.User, receiver *store.Merchant, amount float64) error {
	sender.Balance -= amount
	receiver.Balance += amount

	err := s.persistUsers()
	if err != nil {
		sender.Balance += amount
		receiver.Balance -= amount
		return err
	}

	err = s.persistMerchants()
	if err != nil {
		sender.Balance += amount
		receiver.Balance -= amount
		if userErr := s.persistUsers(); userErr != nil {
			return errors.Join(err, userErr)
		}
		return err
	}

	return nil
}

// persist helpers run with s.mu held.

func (s *FileStore) persistUsers() error {
	return writeSnapshot(filepath.Join(s.dir, usersFile), s.users)
}

func (s *FileStore) persistMerchants() error {
	return writeSnapshot(filepath.Join(s.dir, merchantsFile), s.merchants)
}

func (s *FileStore) persistBanks() error {
	return writeSnapshot(filepath.Join(s.dir, banksFile), s.banks)
}

func loadSnapshot(path string, target any) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Join(ErrSnapshotFailed, err)
	}

	err = json.Unmarshal(raw, target)
	if err != nil {
		return errors.Join(ErrSnapshotFailed, err)
	}

	return nil
}

func writeSnapshot(path string, source any) error {
	raw, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return errors.Join(ErrSnapshotFailed, err)
	}

	tmp := path + ".tmp"
	err = os.WriteFile(tmp, raw, 0o644)
	if err != nil {
		return errors.Join(ErrSnapshotFailed, err)
	}

	err = os.Rename(tmp, path)
	if err != nil {
		return errors.Join(ErrSnapshotFailed, err)
	}

	return nil
}
