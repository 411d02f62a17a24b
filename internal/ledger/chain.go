package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	ErrPersistFailed = errors.New("failed to persist ledger snapshot")
	ErrLoadFailed    = errors.New("failed to load ledger snapshot")
)

// Chain is the per-bank append-only block sequence. Append and persist happen
// under one lock so a loaded chain always matches the last persisted length.
type Chain struct {
	mu     sync.RWMutex
	blocks []Block
	path   string
}

// Open loads the chain snapshot at path, or creates and persists a fresh
// chain holding only the genesis block when no snapshot exists.
func Open(path string) (*Chain, error) {
	c := &Chain{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		err = json.Unmarshal(raw, &c.blocks)
		if err != nil {
			return nil, errors.Join(ErrLoadFailed, err)
		}
		if len(c.blocks) == 0 {
			return nil, errors.Join(ErrLoadFailed, fmt.Errorf("snapshot %s holds no blocks", path))
		}

	case os.IsNotExist(err):
		c.blocks = []Block{newGenesisBlock()}
		err = c.persist()
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.Join(ErrLoadFailed, err)
	}

	return c, nil
}

// Append links a new block to the current tail and persists the snapshot. If
// persisting fails the block is discarded and the error returned, so memory
// never runs ahead of storage.
func (c *Chain) Append(transactionID string, data TransactionData) (Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tail := c.blocks[len(c.blocks)-1]
	block := Block{
		TransactionID:   transactionID,
		TransactionData: data,
		PreviousHash:    tail.TransactionID,
		Timestamp:       time.Now().Unix(),
	}

	c.blocks = append(c.blocks, block)

	err := c.persist()
	if err != nil {
		c.blocks = c.blocks[:len(c.blocks)-1]
		return Block{}, err
	}

	return block, nil
}

// DropTail removes the tail block when it carries the given transaction
// identifier and persists the shortened snapshot. It unwinds an append whose
// twin on another bank's chain could not complete.
func (c *Chain) DropTail(transactionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tail := c.blocks[len(c.blocks)-1]
	if tail.TransactionID != transactionID {
		return fmt.Errorf("transaction %s is not the chain tail", transactionID)
	}

	c.blocks = c.blocks[:len(c.blocks)-1]

	err := c.persist()
	if err != nil {
		c.blocks = append(c.blocks, tail)
		return err
	}

	return nil
}

// Validate scans the chain once and reports whether every non-genesis block
// links to the transaction identifier of its immediate antecedent.
func (c *Chain) Validate() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := 1; i < len(c.blocks); i++ {
		if c.blocks[i].PreviousHash != c.blocks[i-1].TransactionID {
			return false
		}
	}

	return true
}

// Blocks returns a copy of the ordered block sequence, genesis first.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]Block, len(c.blocks))
	copy(blocks, c.blocks)
	return blocks
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// persist rewrites the full snapshot, then swaps it into place atomically.
// Callers hold c.mu.
func (c *Chain) persist() error {
	raw, err := json.MarshalIndent(c.blocks, "", "  ")
	if err != nil {
		return errors.Join(ErrPersistFailed, err)
	}

	tmp := c.path + ".tmp"
	err = os.WriteFile(tmp, raw, 0o644)
	if err != nil {
		return errors.Join(ErrPersistFailed, err)
	}

	err = os.Rename(tmp, c.path)
	if err != nil {
		return errors.Join(ErrPersistFailed, err)
	}

	return nil
}

// Registry hands out the chain for a bank, creating it on first reference.
type Registry struct {
	mu     sync.Mutex
	dir    string
	chains map[string]*Chain
}

func NewRegistry(dir string) (*Registry, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, errors.Join(ErrPersistFailed, err)
	}

	return &Registry{
		dir:    dir,
		chains: map[string]*Chain{},
	}, nil
}

// Chain returns the ledger for the named bank, loading its snapshot from the
// registry directory or creating it when first referenced.
func (r *Registry) Chain(bankName string) (*Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chain, found := r.chains[bankName]
	if found {
		return chain, nil
	}

	chain, err := Open(filepath.Join(r.dir, snapshotFileName(bankName)))
	if err != nil {
		return nil, err
	}

	r.chains[bankName] = chain
	return chain, nil
}

func snapshotFileName(bankName string) string {
	name := make([]rune, 0, len(bankName))
	for _, c := range bankName {
		if c == ' ' {
			c = '_'
		}
		name = append(name, c)
	}
	return "ledger_" + string(name) + ".json"
}
