package vmid_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/upisim/upig/internal/vmid"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *vmid.FileMappingStore {
	t.Helper()

	store, err := vmid.NewFileMappingStore(filepath.Join(t.TempDir(), "merchant_mappings.json"), time.Minute)
	require.NoError(t, err)

	return store
}

const testMerchantID = "9f2c4e6a8b0d1357"

func TestIssueResolveRoundTrip(t *testing.T) {
	// given
	sut := vmid.NewService(newTestLogger(), newTestStore(t))
	ts := time.Unix(1700000000, 0)

	// when
	ephemeralID, err := sut.Issue(testMerchantID, ts)
	require.NoError(t, err)

	resolved, err := sut.Resolve(ephemeralID, ts)

	// then
	require.NoError(t, err)
	require.Equal(t, testMerchantID, resolved)
}

func TestIssueDiffersAcrossTimestamps(t *testing.T) {
	// given
	sut := vmid.NewService(newTestLogger(), newTestStore(t))

	// when
	first, err := sut.Issue(testMerchantID, time.Unix(1700000000, 0))
	require.NoError(t, err)

	second, err := sut.Issue(testMerchantID, time.Unix(1700000001, 0))
	require.NoError(t, err)

	// then
	require.NotEqual(t, first, second)
}

func TestResolveFallsBackToPrefixMatch(t *testing.T) {
	// given an identifier issued by a service whose mappings are lost
	issuer := vmid.NewService(newTestLogger(), newTestStore(t))
	ts := time.Unix(1700000000, 0)

	ephemeralID, err := issuer.Issue(testMerchantID, ts)
	require.NoError(t, err)

	sut := vmid.NewService(newTestLogger(), newTestStore(t),
		vmid.WithPrefixMatcher(vmid.MerchantList{testMerchantID}))

	// when
	resolved, err := sut.Resolve(ephemeralID, ts)

	// then
	require.NoError(t, err)
	require.Equal(t, testMerchantID, resolved)
}

func TestResolveFailsWithoutMappingOrMatcher(t *testing.T) {
	// given a service with an empty mapping table and no fallback
	issuer := vmid.NewService(newTestLogger(), newTestStore(t))
	ts := time.Unix(1700000000, 0)

	ephemeralID, err := issuer.Issue(testMerchantID, ts)
	require.NoError(t, err)

	sut := vmid.NewService(newTestLogger(), newTestStore(t))

	// when
	_, err = sut.Resolve(ephemeralID, ts)

	// then
	require.ErrorIs(t, err, vmid.ErrUnresolvable)
}

func TestResolveUnknownPrefix(t *testing.T) {
	// given a fallback list that does not contain the issuer's merchant
	issuer := vmid.NewService(newTestLogger(), newTestStore(t))
	ts := time.Unix(1700000000, 0)

	ephemeralID, err := issuer.Issue(testMerchantID, ts)
	require.NoError(t, err)

	sut := vmid.NewService(newTestLogger(), newTestStore(t),
		vmid.WithPrefixMatcher(vmid.MerchantList{"0000000000000000"}))

	// when
	_, err = sut.Resolve(ephemeralID, ts)

	// then
	require.ErrorIs(t, err, vmid.ErrUnresolvable)
}

func TestMappingStorePutPersistFailure(t *testing.T) {
	// given a snapshot path the final rename cannot replace
	path := filepath.Join(t.TempDir(), "merchant_mappings.json")

	store, err := vmid.NewFileMappingStore(path, time.Minute)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(path, 0o755))

	// when
	err = store.Put("1700000000", testMerchantID)

	// then
	require.ErrorIs(t, err, vmid.ErrMappingPersistFailed)
}

func TestMappingStoreSurvivesReload(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "merchant_mappings.json")

	store, err := vmid.NewFileMappingStore(path, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Put("1700000000", testMerchantID))

	// when
	reloaded, err := vmid.NewFileMappingStore(path, time.Minute)
	require.NoError(t, err)

	got, err := reloaded.Get("1700000000")

	// then
	require.NoError(t, err)
	require.Equal(t, testMerchantID, got)
}
