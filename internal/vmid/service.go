package vmid

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// The enciphered block carries a four-character identifier prefix plus the
// four low-order timestamp digits, so both fit inside the cipher's single
// 64-bit block and a different issuance second yields a different
// ephemeral identifier.
const (
	keyPrefix    = "UPI"
	midPrefixLen = 4
	tsSuffixLen  = 4
	keyDigits    = 8
)

var (
	ErrUnresolvable = errors.New("ephemeral identifier could not be resolved")
	ErrInvalidVMID  = errors.New("ephemeral identifier is not valid hex ciphertext")
)

// PrefixMatcher finds the permanent merchant identifier starting with the
// recovered prefix. The match is ambiguous among identifiers sharing a
// prefix; the mapping store remains authoritative.
type PrefixMatcher interface {
	MatchMerchantPrefix(prefix string) (string, bool)
}

// Service converts a merchant's permanent identifier into a short-lived
// substitute bound to an issuance timestamp, and reverses the mapping.
type Service struct {
	logger  *slog.Logger
	store   MappingStore
	matcher PrefixMatcher
}

func NewService(logger *slog.Logger, store MappingStore, opts ...ServiceOption) *Service {
	s := &Service{
		logger: logger.With(slog.String("module", "vmid")),
		store:  store,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type ServiceOption func(*Service)

// WithPrefixMatcher enables the decrypt-and-match fallback used when the
// mapping table has no entry for the redemption timestamp.
func WithPrefixMatcher(m PrefixMatcher) ServiceOption {
	return func(s *Service) {
		s.matcher = m
	}
}

// Issue derives the session key from the timestamp's low-order digits,
// enciphers the identifier prefix and records the reverse mapping. The same
// identifier issued at two different seconds yields two different ephemeral
// identifiers.
func (s *Service) Issue(merchantID string, ts time.Time) (string, error) {
	tsString := strconv.FormatInt(ts.Unix(), 10)

	err := s.store.Put(tsString, merchantID)
	if err != nil {
		return "", err
	}

	plaintext := prefixOf(merchantID, midPrefixLen) + suffixOf(tsString, tsSuffixLen)
	ciphertext := encrypt(plaintext, sessionKey(tsString))

	return hex.EncodeToString(ciphertext), nil
}

// Resolve recovers the permanent identifier for an ephemeral one. The
// mapping table is consulted first and is always correct when present; only
// if the entry is absent does Resolve fall back to decrypting the identifier
// and matching the recovered prefix.
func (s *Service) Resolve(ephemeralID string, ts time.Time) (string, error) {
	tsString := strconv.FormatInt(ts.Unix(), 10)

	merchantID, err := s.store.Get(tsString)
	if err == nil {
		return merchantID, nil
	}
	if !errors.Is(err, ErrMappingNotFound) {
		return "", err
	}

	if s.matcher == nil {
		return "", ErrUnresolvable
	}

	ciphertext, err := hex.DecodeString(ephemeralID)
	if err != nil {
		return "", errors.Join(ErrInvalidVMID, err)
	}

	plaintext, err := decrypt(ciphertext, sessionKey(tsString))
	if err != nil {
		return "", errors.Join(ErrInvalidVMID, err)
	}

	// an ephemeral identifier is valid only with its paired timestamp
	if suffixOf(plaintext, tsSuffixLen) != suffixOf(tsString, tsSuffixLen) {
		return "", errors.Join(ErrUnresolvable, errors.New("timestamp does not match identifier"))
	}

	prefix := prefixOf(plaintext, midPrefixLen)
	merchantID, found := s.matcher.MatchMerchantPrefix(prefix)
	if !found {
		return "", errors.Join(ErrUnresolvable, errors.New("no merchant matches prefix "+prefix))
	}

	s.logger.Warn("Resolved ephemeral identifier by prefix fallback",
		slog.String("prefix", prefix),
		slog.String("merchantId", merchantID),
	)

	return merchantID, nil
}

func sessionKey(tsString string) string {
	return keyPrefix + suffixOf(tsString, keyDigits)
}

func prefixOf(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func suffixOf(s string, n int) string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

// MerchantList is the single-terminal PrefixMatcher: a terminal only ever
// issues identifiers for its own merchants.
type MerchantList []string

func (l MerchantList) MatchMerchantPrefix(prefix string) (string, bool) {
	for _, merchantID := range l {
		if strings.HasPrefix(merchantID, prefix) {
			return merchantID, true
		}
	}
	return "", false
}
