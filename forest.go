package rrcf

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// ForestConfig controls forest construction.
// Start with [DefaultForestConfig] and override the fields you need.
type ForestConfig struct {
	// Trees is the ensemble size. Each tree receives an independent seed
	// drawn from Seed. Must be >= 1. Default: 10.
	Trees int

	// TreeSize is the maximum number of windows each tree retains. Once the
	// stream has produced more windows, the oldest is forgotten from every
	// tree before the newest is inserted. Must be >= 1. Default: 256.
	TreeSize int

	// ShingleSize is the window width: the number of consecutive scalars
	// treated as one point. Must be >= 1. Default: 4.
	ShingleSize int

	// Seed is the master seed for the per-tree RNGs. Runs with the same seed
	// and input sequence produce identical scores.
	Seed int64

	// Workers controls the number of goroutines used to dispatch tree
	// operations. Scores are identical for any value. 0 means use
	// runtime.NumCPU(). Default: 0 (auto).
	Workers int
}

// DefaultForestConfig returns a ForestConfig with reasonable defaults.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:       10,
		TreeSize:    256,
		ShingleSize: 4,
	}
}

func applyForestDefaults(cfg *ForestConfig) {
	if cfg.Trees == 0 {
		cfg.Trees = 10
	}
	if cfg.TreeSize == 0 {
		cfg.TreeSize = 256
	}
	if cfg.ShingleSize == 0 {
		cfg.ShingleSize = 4
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

func validateForestConfig(cfg *ForestConfig) error {
	if cfg.Trees < 1 {
		return fmt.Errorf("rrcf: Trees must be >= 1, got %d", cfg.Trees)
	}
	if cfg.TreeSize < 1 {
		return fmt.Errorf("rrcf: TreeSize must be >= 1, got %d", cfg.TreeSize)
	}
	if cfg.ShingleSize < 1 {
		return fmt.Errorf("rrcf: ShingleSize must be >= 1, got %d", cfg.ShingleSize)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("rrcf: Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

// Forest is an ensemble of independently seeded shingled trees over one
// shared scalar buffer. Feeding it a stream one scalar at a time yields a
// per-sample anomaly score: the mean collusive displacement of the newest
// window across the trees.
//
// A Forest is not safe for concurrent use; AddPoint calls must be sequential.
// Internally each tree is confined to one worker per dispatch, so trees are
// never mutated concurrently.
type Forest struct {
	trees    []*ShingledTree
	buffer   *BoundedBuffer
	shingle  int
	treeSize int
	workers  int
}

// NewForest builds a forest from cfg. The shared buffer's capacity is
// TreeSize + ShingleSize - 1: exactly enough scalars to materialize every
// retained window.
func NewForest(cfg ForestConfig) (*Forest, error) {
	applyForestDefaults(&cfg)
	if err := validateForestConfig(&cfg); err != nil {
		return nil, err
	}

	master := rand.New(rand.NewSource(cfg.Seed))
	trees := make([]*ShingledTree, cfg.Trees)
	for i := range trees {
		trees[i] = NewShingledTree(rand.New(rand.NewSource(master.Int63())), cfg.ShingleSize)
	}
	return &Forest{
		trees:    trees,
		buffer:   NewBoundedBuffer(cfg.TreeSize + cfg.ShingleSize - 1),
		shingle:  cfg.ShingleSize,
		treeSize: cfg.TreeSize,
		workers:  cfg.Workers,
	}, nil
}

// NumTrees returns the ensemble size.
func (f *Forest) NumTrees() int { return len(f.trees) }

// ShingleSize returns the window width.
func (f *Forest) ShingleSize() int { return f.shingle }

// AddPoint appends one scalar to the stream and returns the anomaly score of
// the window it completes: the mean per-tree collusive displacement of the
// newly inserted leaf. Until the stream has produced a full window the score
// is 0. When the buffer is full, every tree first forgets the expiring oldest
// window; a tree failing to find that window means forest bookkeeping is
// broken and surfaces as an error rather than a silent skip.
func (f *Forest) AddPoint(x float64) (float64, error) {
	// Forget before Add: the append below evicts the oldest scalar, which is
	// still referenced by the expiring window's leaves.
	if f.buffer.Size() == f.buffer.Capacity() {
		oldest := NewShingledPoint(f.buffer, f.buffer.First(), f.shingle)
		err := f.forEachTree(func(i int, tr *ShingledTree) error {
			if _, err := tr.ForgetPoint(oldest); err != nil {
				return fmt.Errorf("rrcf: tree %d cannot forget the expiring window at %d: %w", i, oldest.Start(), err)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	f.buffer.Add(x)
	if f.buffer.Next() < uint64(f.shingle) {
		return 0, nil
	}

	newest := NewShingledPoint(f.buffer, f.buffer.Next()-uint64(f.shingle), f.shingle)
	scores := make([]float64, len(f.trees))
	err := f.forEachTree(func(i int, tr *ShingledTree) error {
		leaf, err := tr.InsertPoint(newest)
		if err != nil {
			return fmt.Errorf("rrcf: tree %d rejected the window at %d: %w", i, newest.Start(), err)
		}
		scores[i] = float64(tr.CollusiveDisplacement(leaf))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stat.Mean(scores, nil), nil
}

// forEachTree runs fn once per tree, fanning contiguous tree ranges across
// up to f.workers goroutines. Each tree is touched by exactly one worker.
// Returns the first error by tree order.
func (f *Forest) forEachTree(fn func(i int, tr *ShingledTree) error) error {
	n := len(f.trees)
	if f.workers <= 1 || n <= 1 {
		for i, tr := range f.trees {
			if err := fn(i, tr); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	perWorker := (n + f.workers - 1) / f.workers
	for w := 0; w < f.workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > n {
			end = n
		}
		if start >= n {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				errs[i] = fn(i, f.trees[i])
			}
		}(start, end)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
