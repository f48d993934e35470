// Package checkpoint provides the durable per-run progress record that lets
// the runner resume a (benchmark, provider) pair exactly where it stopped.
// One JSON file per (run, benchmark, provider), written via temp-file +
// atomic rename so a crash mid-write never corrupts the record.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Phase identifies the runner phase an item record belongs to.
type Phase string

const (
	PhaseIngest   Phase = "ingest"
	PhaseSearch   Phase = "search"
	PhaseEvaluate Phase = "evaluate"
)

// phaseOrder: ingest < search < evaluate. Completion at phase P covers all
// earlier phases.
var phaseOrder = map[Phase]int{
	PhaseIngest:   0,
	PhaseSearch:   1,
	PhaseEvaluate: 2,
}

// Index returns the ordinal of the phase, or -1 for unknown phases.
func (p Phase) Index() int {
	if i, ok := phaseOrder[p]; ok {
		return i
	}
	return -1
}

// Status of one item record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ItemRecord tracks one item (or context) through the phases.
type ItemRecord struct {
	ItemID    string    `json:"itemId"`
	Status    Status    `json:"status"`
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Checkpoint is the persisted progress record for one (run, benchmark,
// provider) pair.
type Checkpoint struct {
	RunID     string       `json:"runId"`
	Benchmark string       `json:"benchmark"`
	Provider  string       `json:"provider"`
	Items     []ItemRecord `json:"items"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	index map[string]int `json:"-"`
}

func (c *Checkpoint) rebuildIndex() {
	c.index = make(map[string]int, len(c.Items))
	for i, rec := range c.Items {
		c.index[rec.ItemID] = i
	}
}

// Record returns the record for itemID, if present.
func (c *Checkpoint) Record(itemID string) (ItemRecord, bool) {
	if i, ok := c.index[itemID]; ok {
		return c.Items[i], true
	}
	return ItemRecord{}, false
}

// Manager loads, caches, and persists checkpoints under a base directory.
// Layout: {baseDir}/{runId}/{benchmark}-{provider}.json.
type Manager struct {
	baseDir string

	mu    sync.Mutex
	cache map[string]*Checkpoint
}

// NewManager creates a manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir, cache: make(map[string]*Checkpoint)}
}

func (m *Manager) path(runID, benchmark, provider string) string {
	return filepath.Join(m.baseDir, runID, fmt.Sprintf("%s-%s.json", benchmark, provider))
}

func cacheKey(runID, benchmark, provider string) string {
	return runID + "/" + benchmark + "/" + provider
}

// LoadOrCreate returns the existing checkpoint for the triple, reading it
// from disk on first access, or creates a fresh one. A file that exists but
// cannot be parsed is reported as an error; the runner treats that as fatal
// for the pair.
func (m *Manager) LoadOrCreate(runID, benchmark, provider string) (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey(runID, benchmark, provider)
	if cp, ok := m.cache[key]; ok {
		return cp, nil
	}

	path := m.path(runID, benchmark, provider)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var cp Checkpoint
		if uerr := json.Unmarshal(data, &cp); uerr != nil {
			return nil, fmt.Errorf("corrupted checkpoint %s: %w", path, uerr)
		}
		cp.rebuildIndex()
		m.cache[key] = &cp
		return &cp, nil
	case os.IsNotExist(err):
		now := time.Now().UTC()
		cp := &Checkpoint{
			RunID:     runID,
			Benchmark: benchmark,
			Provider:  provider,
			CreatedAt: now,
			UpdatedAt: now,
		}
		cp.rebuildIndex()
		m.cache[key] = cp
		return cp, nil
	default:
		return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
	}
}

// ShouldSkip reports whether itemID is already completed at the requested
// phase or a later one. Failed and pending items are always re-executed.
func (m *Manager) ShouldSkip(runID, benchmark, provider, itemID string, phase Phase) (bool, error) {
	cp, err := m.LoadOrCreate(runID, benchmark, provider)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := cp.Record(itemID)
	if !ok {
		return false, nil
	}
	return rec.Status == StatusCompleted && rec.Phase.Index() >= phase.Index(), nil
}

// MarkInProgress records the item as in flight at the given phase.
func (m *Manager) MarkInProgress(runID, benchmark, provider, itemID string, phase Phase) error {
	return m.mark(runID, benchmark, provider, itemID, phase, StatusInProgress, "")
}

// MarkComplete records successful completion of the item at the given phase.
func (m *Manager) MarkComplete(runID, benchmark, provider, itemID string, phase Phase) error {
	return m.mark(runID, benchmark, provider, itemID, phase, StatusCompleted, "")
}

// MarkFailed records a failure with its error text.
func (m *Manager) MarkFailed(runID, benchmark, provider, itemID string, phase Phase, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return m.mark(runID, benchmark, provider, itemID, phase, StatusFailed, msg)
}

func (m *Manager) mark(runID, benchmark, provider, itemID string, phase Phase, status Status, errMsg string) error {
	cp, err := m.LoadOrCreate(runID, benchmark, provider)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := ItemRecord{
		ItemID:    itemID,
		Status:    status,
		Phase:     phase,
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
	}
	if i, ok := cp.index[itemID]; ok {
		cp.Items[i] = rec
	} else {
		cp.index[itemID] = len(cp.Items)
		cp.Items = append(cp.Items, rec)
	}
	cp.UpdatedAt = rec.Timestamp

	return m.persistLocked(cp)
}

// persistLocked writes the checkpoint via temp file + rename. Checkpoint
// writes sit on the critical path on purpose: a crash between buffer and
// flush is the exact scenario checkpoints defend against.
func (m *Manager) persistLocked(cp *Checkpoint) error {
	path := m.path(cp.RunID, cp.Benchmark, cp.Provider)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Stats summarizes item outcomes for one checkpoint.
type Stats struct {
	Total      int
	Completed  int
	Failed     int
	InProgress int
	Pending    int
}

// Stats computes outcome counts for the triple's checkpoint.
func (m *Manager) Stats(runID, benchmark, provider string) (Stats, error) {
	cp, err := m.LoadOrCreate(runID, benchmark, provider)
	if err != nil {
		return Stats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	s.Total = len(cp.Items)
	for _, rec := range cp.Items {
		switch rec.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusInProgress:
			s.InProgress++
		default:
			s.Pending++
		}
	}
	return s, nil
}
