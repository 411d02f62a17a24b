package ledger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upisim/upig/internal/ledger"
)

func openTestChain(t *testing.T) *ledger.Chain {
	t.Helper()

	chain, err := ledger.Open(filepath.Join(t.TempDir(), "ledger_test.json"))
	require.NoError(t, err)

	return chain
}

func testData(txID string, amount float64) ledger.TransactionData {
	return ledger.TransactionData{
		TransactionID: txID,
		SenderID:      "f3a91c2b77d0e845",
		ReceiverID:    "0be2d4c6a8f01357",
		Amount:        amount,
		Description:   "test payment",
		Timestamp:     time.Now().Unix(),
	}
}

func TestOpenCreatesGenesis(t *testing.T) {
	// when
	sut := openTestChain(t)

	// then
	blocks := sut.Blocks()
	require.Len(t, blocks, 1)
	require.Equal(t, ledger.GenesisID, blocks[0].TransactionID)
	require.Equal(t, ledger.GenesisID, blocks[0].PreviousHash)
}

func TestAppendLinksToTail(t *testing.T) {
	// given
	sut := openTestChain(t)

	// when
	first, err := sut.Append("tx-1", testData("tx-1", 100))
	require.NoError(t, err)

	second, err := sut.Append("tx-2", testData("tx-2", 50))
	require.NoError(t, err)

	// then
	require.Equal(t, ledger.GenesisID, first.PreviousHash)
	require.Equal(t, "tx-1", second.PreviousHash)
	require.True(t, sut.Validate())
}

func TestDropTailRemovesAndPersists(t *testing.T) {
	// given
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger_test.json")

	sut, err := ledger.Open(path)
	require.NoError(t, err)

	_, err = sut.Append("tx-1", testData("tx-1", 100))
	require.NoError(t, err)
	_, err = sut.Append("tx-2", testData("tx-2", 50))
	require.NoError(t, err)

	// when
	require.NoError(t, sut.DropTail("tx-2"))

	// then the shortened chain is what a reload sees
	require.Equal(t, 2, sut.Len())
	require.True(t, sut.Validate())

	reloaded, err := ledger.Open(path)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())
	require.Equal(t, "tx-1", reloaded.Blocks()[1].TransactionID)
}

func TestDropTailRejectsNonTail(t *testing.T) {
	// given
	sut := openTestChain(t)

	_, err := sut.Append("tx-1", testData("tx-1", 100))
	require.NoError(t, err)
	_, err = sut.Append("tx-2", testData("tx-2", 50))
	require.NoError(t, err)

	// when
	err = sut.DropTail("tx-1")

	// then
	require.Error(t, err)
	require.Equal(t, 3, sut.Len())
}

func TestValidateDetectsBrokenLink(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "ledger_tampered.json")
	chain, err := ledger.Open(path)
	require.NoError(t, err)

	_, err = chain.Append("tx-1", testData("tx-1", 100))
	require.NoError(t, err)
	_, err = chain.Append("tx-2", testData("tx-2", 50))
	require.NoError(t, err)

	// when the snapshot is mutated out of band
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var blocks []ledger.Block
	require.NoError(t, json.Unmarshal(raw, &blocks))
	blocks[2].PreviousHash = "swapped"
	raw, err = json.Marshal(blocks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	reloaded, err := ledger.Open(path)
	require.NoError(t, err)

	// then
	require.True(t, chain.Validate())
	require.False(t, reloaded.Validate())
}

// The chain links blocks by transaction identifier, not by a digest of block
// contents, so a payload-only mutation is invisible to Validate.
func TestValidateIgnoresPayloadMutation(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "ledger_payload.json")
	chain, err := ledger.Open(path)
	require.NoError(t, err)

	_, err = chain.Append("tx-1", testData("tx-1", 100))
	require.NoError(t, err)

	// when the amount is swapped out of band
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var blocks []ledger.Block
	require.NoError(t, json.Unmarshal(raw, &blocks))
	blocks[1].TransactionData.Amount = 999999
	raw, err = json.Marshal(blocks)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	reloaded, err := ledger.Open(path)
	require.NoError(t, err)

	// then
	require.True(t, reloaded.Validate())
}

func TestPersistLoadRoundTrip(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "ledger_roundtrip.json")
	chain, err := ledger.Open(path)
	require.NoError(t, err)

	_, err = chain.Append("tx-1", testData("tx-1", 100))
	require.NoError(t, err)
	_, err = chain.Append("tx-2", testData("tx-2", 50))
	require.NoError(t, err)

	// when
	reloaded, err := ledger.Open(path)
	require.NoError(t, err)

	// then
	require.Equal(t, chain.Blocks(), reloaded.Blocks())
	require.True(t, reloaded.Validate())
}

func TestTransactionIDDeterministic(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	first := ledger.TransactionID("sender", "receiver", 150, ts)
	second := ledger.TransactionID("sender", "receiver", 150, ts)
	different := ledger.TransactionID("sender", "receiver", 150, ts.Add(time.Second))

	require.Equal(t, first, second)
	require.NotEqual(t, first, different)
	require.Len(t, first, 64)
}

func TestRegistryCreatesChainOnFirstReference(t *testing.T) {
	// given
	registry, err := ledger.NewRegistry(t.TempDir())
	require.NoError(t, err)

	// when
	first, err := registry.Chain("State Bank of India")
	require.NoError(t, err)

	again, err := registry.Chain("State Bank of India")
	require.NoError(t, err)

	other, err := registry.Chain("HDFC Bank")
	require.NoError(t, err)

	// then
	require.Same(t, first, again)
	require.NotSame(t, first, other)
	require.Equal(t, 1, first.Len())
}
