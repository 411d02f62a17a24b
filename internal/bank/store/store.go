// Package store defines the authoritative account registry owned by the bank
// process: users, merchants and banks, plus the alias index for users.
package store

import (
	"errors"
)

var (
	ErrNotFound            = errors.New("key could not be found")
	ErrUnknownBankCode     = errors.New("bank code does not exist")
	ErrBankCodeTaken       = errors.New("bank code already exists")
	ErrBankCodeLength      = errors.New("bank code must be 11 characters long")
	ErrSenderNotFound      = errors.New("sender not found")
	ErrReceiverNotFound    = errors.New("receiver not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// bankCodeLength is the fixed length of a registered bank code.
const bankCodeLength = 11

type User struct {
	UID           string  `json:"uid"`
	Name          string  `json:"name"`
	MMID          string  `json:"mmid"`
	PIN           string  `json:"pin"`
	AccountNumber string  `json:"account_number"`
	BankCode      string  `json:"bank_code"`
	MobileNumber  string  `json:"mobile_number"`
	Password      string  `json:"password"`
	Balance       float64 `json:"balance"`
}

type Merchant struct {
	MID           string  `json:"mid"`
	Name          string  `json:"name"`
	AccountNumber string  `json:"account_number"`
	BankCode      string  `json:"bank_code"`
	Balance       float64 `json:"balance"`
}

type Bank struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Branches []string `json:"branches"`
}

// TransferResult reports the owning bank codes of both sides of a committed
// transfer, so the caller can append the ledger blocks.
type TransferResult struct {
	SenderBankCode   string
	ReceiverBankCode string
}

// AccountStore is the registry interface the bank processor works against.
// Implementations serialize all mutations internally; for a single account,
// balance updates are linearizable.
type AccountStore interface {
	UpsertUser(user *User) error
	GetUser(uid string) (*User, error)
	GetUserByMMID(mmid string) (*User, error)
	Users() []*User

	UpsertMerchant(merchant *Merchant) error
	GetMerchant(mid string) (*Merchant, error)
	Merchants() []*Merchant

	RegisterBank(bank *Bank) error
	GetBank(code string) (*Bank, error)
	Banks() []*Bank

	// Transfer validates and commits the debit+credit pair as one mutation:
	// either both balances change and are persisted, or neither does.
	Transfer(senderUID, receiverMID string, amount float64) (*TransferResult, error)

	// ReverseTransfer moves a committed amount back from the receiver to the
	// sender. It compensates a transfer whose follow-up ledger append failed.
	ReverseTransfer(senderUID, receiverMID string, amount float64) error
}

// ValidateBankCode enforces the fixed bank code length.
func ValidateBankCode(code string) error {
	if len(code) != bankCodeLength {
		return ErrBankCodeLength
	}
	return nil
}
