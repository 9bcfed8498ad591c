// Package journal persists locally submitted transactions until the backend has recorded them.
package journal

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"wallet_core/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	recordKeyPrefix = "tx_record_"

	statusSubmitted = "submitted"
	statusRecorded  = "recorded"
)

// ErrUnknownRecord is returned when marking a record the journal never saw.
var ErrUnknownRecord = errors.New("unknown journal record")

type journalEntry struct {
	Status string                   `json:"status"`
	Record entity.TransactionRecord `json:"record"`
}

// WALJournal is a port.TransactionJournal backed by a write-ahead log.
type WALJournal struct {
	mu      sync.Mutex
	wal     *gowal.Wal
	entries map[string]*journalEntry
	logger  *zap.Logger
}

// Open opens (or creates) the journal in dir and replays its entries.
func Open(dir string, logger *zap.Logger) (*WALJournal, error) {
	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: 1000,
		MaxSegments:      100,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error init journal wal")
	}

	j := &WALJournal{
		wal:     wal,
		entries: make(map[string]*journalEntry),
		logger:  logger.Named("TransactionJournal"),
	}

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, recordKeyPrefix) {
			continue
		}
		var entry journalEntry
		if err := json.Unmarshal(msg.Value, &entry); err != nil {
			j.logger.Error("failed to unmarshal journal entry", zap.String("key", msg.Key), zap.Error(err))
			continue
		}
		entryCopy := entry
		j.entries[entry.Record.ID] = &entryCopy
	}

	if pending := j.countUnrecorded(); pending > 0 {
		j.logger.Warn("Journal holds unrecorded submissions", zap.Int("count", pending))
	}
	return j, nil
}

// Append durably stores a freshly submitted record.
func (j *WALJournal) Append(record entity.TransactionRecord) error {
	if record.ID == "" {
		return errors.New("journal record without id")
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := &journalEntry{Status: statusSubmitted, Record: record}
	if err := j.persist(entry); err != nil {
		return err
	}
	j.entries[record.ID] = entry
	return nil
}

// MarkRecorded notes that the backend has recorded the submission.
func (j *WALJournal) MarkRecorded(id string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, ok := j.entries[id]
	if !ok {
		return errors.Wrapf(ErrUnknownRecord, "id %s", id)
	}
	if entry.Status == statusRecorded {
		return nil
	}
	updated := &journalEntry{Status: statusRecorded, Record: entry.Record}
	if err := j.persist(updated); err != nil {
		return err
	}
	j.entries[id] = updated
	return nil
}

// Unrecorded returns the submissions not yet recorded, oldest first.
func (j *WALJournal) Unrecorded() ([]entity.TransactionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]entity.TransactionRecord, 0)
	for _, entry := range j.entries {
		if entry.Status == statusSubmitted {
			out = append(out, entry.Record)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].SubmittedAt.Equal(out[b].SubmittedAt) {
			return out[a].SubmittedAt.Before(out[b].SubmittedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

// Close closes the underlying WAL.
func (j *WALJournal) Close() error {
	return j.wal.Close()
}

func (j *WALJournal) countUnrecorded() int {
	n := 0
	for _, entry := range j.entries {
		if entry.Status == statusSubmitted {
			n++
		}
	}
	return n
}

func (j *WALJournal) persist(entry *journalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal journal entry")
	}
	key := fmt.Sprintf("%s%s", recordKeyPrefix, entry.Record.ID)
	nextIndex := j.wal.CurrentIndex() + 1
	return errors.Wrap(j.wal.Write(nextIndex, key, data), "failed to write journal entry")
}
