// Package store persists retrieval sessions, normalized results, and
// finished reports in an embedded Badger database.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/moxie99/ai-reputation/pkg/person"
)

// Session statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// SessionDoc tracks one retrieval run.
type SessionDoc struct {
	ID          string `badgerhold:"key"`
	TargetName  string
	Status      string
	StartedAt   string
	CompletedAt string
	ResultCount int
}

// ResultDoc is one normalized retrieval record, flattened to strings so
// it round-trips through the store without type registration.
type ResultDoc struct {
	Key         string `badgerhold:"key"`
	RetrievalID string
	Index       int
	Platform    string
	Type        string
	Content     string
	URL         string
	Timestamp   string
	Source      string
	Confidence  float64
}

// ReportDoc holds a finished report. The report itself is kept as JSON;
// its nested payloads are adapter-defined and heterogeneous.
type ReportDoc struct {
	ID          string `badgerhold:"key"`
	TargetName  string
	GeneratedAt string
	Data        []byte
}

// Store wraps a badgerhold instance.
type Store struct {
	db     *badgerhold.Store
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badgerhold.DefaultOptions
	opts.Options = badger.DefaultOptions(path).WithLogger(nil)

	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession records the beginning of a retrieval run.
func (s *Store) StartSession(retrievalID, targetName string) error {
	doc := SessionDoc{
		ID:         retrievalID,
		TargetName: targetName,
		Status:     StatusInProgress,
		StartedAt:  person.Now(),
	}
	if err := s.db.Upsert(doc.ID, &doc); err != nil {
		return fmt.Errorf("start session %s: %w", retrievalID, err)
	}
	return nil
}

// CompleteSession marks a retrieval run finished with its result count.
func (s *Store) CompleteSession(retrievalID string, resultCount int) error {
	var doc SessionDoc
	if err := s.db.Get(retrievalID, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("complete session %s: %w", retrievalID, ErrNotFound)
		}
		return fmt.Errorf("complete session %s: %w", retrievalID, err)
	}

	doc.Status = StatusCompleted
	doc.CompletedAt = person.Now()
	doc.ResultCount = resultCount
	if err := s.db.Upsert(doc.ID, &doc); err != nil {
		return fmt.Errorf("complete session %s: %w", retrievalID, err)
	}
	return nil
}

// Session returns one retrieval session.
func (s *Store) Session(retrievalID string) (SessionDoc, error) {
	var doc SessionDoc
	if err := s.db.Get(retrievalID, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return SessionDoc{}, ErrNotFound
		}
		return SessionDoc{}, err
	}
	return doc, nil
}

// SaveResults stores the normalized records of a retrieval run, keyed
// "<retrievalID>_<index>".
func (s *Store) SaveResults(retrievalID string, results []person.RetrievalResult) error {
	for i, r := range results {
		doc := ResultDoc{
			Key:         fmt.Sprintf("%s_%d", retrievalID, i),
			RetrievalID: retrievalID,
			Index:       i,
			Platform:    r.Platform,
			Type:        string(r.Type),
			Content:     person.ContentString(r.Content),
			URL:         r.URL,
			Timestamp:   r.Timestamp,
			Source:      r.Source,
			Confidence:  r.Confidence,
		}
		if err := s.db.Upsert(doc.Key, &doc); err != nil {
			return fmt.Errorf("save result %s: %w", doc.Key, err)
		}
	}
	return nil
}

// Results returns the stored records of a retrieval run in index order.
func (s *Store) Results(retrievalID string) ([]ResultDoc, error) {
	var docs []ResultDoc
	query := badgerhold.Where("RetrievalID").Eq(retrievalID).SortBy("Index")
	if err := s.db.Find(&docs, query); err != nil {
		return nil, fmt.Errorf("load results for %s: %w", retrievalID, err)
	}
	return docs, nil
}

// SaveReport stores a finished report.
func (s *Store) SaveReport(report person.ReputationReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.ID, err)
	}

	doc := ReportDoc{
		ID:          report.ID,
		TargetName:  report.TargetPerson.Name,
		GeneratedAt: report.GeneratedAt,
		Data:        data,
	}
	if err := s.db.Upsert(doc.ID, &doc); err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

// Report loads a stored report by ID.
func (s *Store) Report(id string) (person.ReputationReport, error) {
	var doc ReportDoc
	if err := s.db.Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return person.ReputationReport{}, ErrNotFound
		}
		return person.ReputationReport{}, err
	}

	var report person.ReputationReport
	if err := json.Unmarshal(doc.Data, &report); err != nil {
		return person.ReputationReport{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return report, nil
}

// Reports lists stored report summaries, newest first.
func (s *Store) Reports() ([]ReportDoc, error) {
	var docs []ReportDoc
	if err := s.db.Find(&docs, badgerhold.Where("ID").Ne("").SortBy("GeneratedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	for i := range docs {
		docs[i].Data = nil // summaries only
	}
	return docs, nil
}
