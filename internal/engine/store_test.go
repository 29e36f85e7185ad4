package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAddAndLookup(t *testing.T) {
	s := NewStore(4, time.Hour)
	content := []byte("RAZÃO SOCIAL,VALOR\nAcme,1\n")
	fp := Fingerprint("a.csv", content)
	assert.Equal(t, fp, Fingerprint("a.csv", append([]byte{}, content...)))
	assert.NotEqual(t, fp, Fingerprint("a.csv", []byte("other")))
	assert.NotEqual(t, fp, Fingerprint("a.xlsx", content))
	assert.NotEqual(t, fp, Fingerprint("b.csv", content))

	_, ok := s.Lookup(fp)
	assert.False(t, ok)

	d := s.Add("vendas.csv", fp, salesTable())
	require.NotEmpty(t, d.ID)
	assert.False(t, d.Uploaded.IsZero())

	got, ok := s.Get(d.ID)
	require.True(t, ok)
	assert.Same(t, d, got)

	got, ok = s.Lookup(fp)
	require.True(t, ok)
	assert.Equal(t, d.ID, got.ID)

	info := d.Info()
	assert.Equal(t, "vendas.csv", info.Name)
	assert.Equal(t, 5, info.Rows)
	assert.Equal(t, ColClient, info.Columns[0])
}

func TestStoreEvictsOldest(t *testing.T) {
	s := NewStore(2, time.Hour)
	first := s.Add("a.csv", 1, salesTable())
	s.Add("b.csv", 2, salesTable())
	s.Add("c.csv", 3, salesTable())

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get(first.ID)
	assert.False(t, ok)
	_, ok = s.Lookup(1)
	assert.False(t, ok)
	_, ok = s.Lookup(3)
	assert.True(t, ok)
}

func TestStoreUnknownID(t *testing.T) {
	_, ok := NewStore(1, time.Minute).Get("missing")
	assert.False(t, ok)
}
