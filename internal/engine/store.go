package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/xxh3"

	"salesboard/internal/models"
)

// Dataset is one uploaded file, parsed.
type Dataset struct {
	ID          string
	Name        string
	Table       *models.Table
	Uploaded    time.Time
	Fingerprint uint64
}

func (d *Dataset) Info() models.DatasetInfo {
	return models.DatasetInfo{
		ID:       d.ID,
		Name:     d.Name,
		Columns:  d.Table.Columns(),
		Rows:     d.Table.Len(),
		Uploaded: d.Uploaded,
	}
}

// Store keeps the uploaded datasets of the running session. It is bounded
// in count and age; uploading the same file twice yields the same dataset.
type Store struct {
	datasets *expirable.LRU[string, *Dataset]
	byPrint  *expirable.LRU[uint64, string]
	now      func() time.Time
}

func NewStore(size int, ttl time.Duration) *Store {
	s := &Store{now: time.Now}
	s.byPrint = expirable.NewLRU[uint64, string](size, nil, ttl)
	s.datasets = expirable.NewLRU[string, *Dataset](size, func(_ string, d *Dataset) {
		s.byPrint.Remove(d.Fingerprint)
	}, ttl)
	return s
}

// Fingerprint hashes an upload's file name and raw bytes. The name is part
// of the key: it picks the parser and is what the dataset reports.
func Fingerprint(name string, content []byte) uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(content)
	return h.Sum64()
}

// Lookup returns the dataset previously stored for the same file.
func (s *Store) Lookup(fp uint64) (*Dataset, bool) {
	id, ok := s.byPrint.Get(fp)
	if !ok {
		return nil, false
	}
	return s.datasets.Get(id)
}

func (s *Store) Add(name string, fp uint64, t *models.Table) *Dataset {
	d := &Dataset{
		ID:          uuid.NewString(),
		Name:        name,
		Table:       t,
		Uploaded:    s.now(),
		Fingerprint: fp,
	}
	s.datasets.Add(d.ID, d)
	s.byPrint.Add(fp, d.ID)
	return d
}

func (s *Store) Get(id string) (*Dataset, bool) {
	return s.datasets.Get(id)
}

func (s *Store) Len() int { return s.datasets.Len() }
