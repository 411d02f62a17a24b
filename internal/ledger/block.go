// Package ledger keeps one append-only chain of committed transactions per
// bank, persisted as a full JSON snapshot after every append.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisID is the sentinel transaction identifier and antecedent link of the
// genesis block.
const GenesisID = "0"

// TransactionData is the committed payload of a block.
type TransactionData struct {
	TransactionID string  `json:"transaction_id"`
	SenderID      string  `json:"sender_id"`
	ReceiverID    string  `json:"receiver_id"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Timestamp     int64   `json:"timestamp"`
}

// Block links one committed transaction to its chain antecedent. PreviousHash
// carries the antecedent's transaction identifier, not a digest of its
// contents; Validate checks exactly that link.
type Block struct {
	TransactionID   string          `json:"transaction_id"`
	TransactionData TransactionData `json:"transaction_data"`
	PreviousHash    string          `json:"previous_hash"`
	Timestamp       int64           `json:"timestamp"`
}

func newGenesisBlock() Block {
	return Block{
		TransactionID: GenesisID,
		PreviousHash:  GenesisID,
		Timestamp:     time.Now().Unix(),
	}
}

// TransactionID derives the deterministic identifier for a transfer. Two
// truly identical quadruples within the same second produce the same
// identifier; callers treat that as an idempotent retry.
func TransactionID(senderID, receiverID string, amount float64, ts time.Time) string {
	input := fmt.Sprintf("%s%s%v%d", senderID, receiverID, amount, ts.Unix())
	digest := sha256.Sum256([]byte(input))
	return hex.EncodeToString(digest[:])
}
