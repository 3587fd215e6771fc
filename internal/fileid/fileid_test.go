package fileid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_PutGet_LongPath(t *testing.T) {
	idx := New()
	e := &Entry{LongPath: "logs/app.log", NextReadOffset: 0}
	idx.Put("logs/app.log", e, "", nil)

	got, long, ok := idx.Get("logs/app.log")
	require.True(t, ok)
	assert.Equal(t, "logs/app.log", long)
	assert.Same(t, e, got)
}

func TestIndex_Get_IsCaseInsensitive(t *testing.T) {
	idx := New()
	e := &Entry{LongPath: "Logs/App.LOG"}
	idx.Put("Logs/App.LOG", e, "", nil)

	_, _, ok := idx.Get("logs/app.log")
	assert.True(t, ok)
}

func TestIndex_Get_FallsBackToShortPathAlias(t *testing.T) {
	idx := New()
	e := &Entry{LongPath: "logs/really-long-name.log"}
	idx.Put("logs/really-long-name.log", e, "logs/REALLY~1.LOG", nil)

	got, long, ok := idx.Get("logs/REALLY~1.LOG")
	require.True(t, ok)
	assert.Equal(t, "logs/really-long-name.log", long)
	assert.Same(t, e, got)
}

func TestIndex_ByIdentity_AndRehome(t *testing.T) {
	idx := New()
	id := Identity{Volume: 1, Bytes: [16]byte{1}}
	e := &Entry{LongPath: "logs/app.log"}
	idx.Put("logs/app.log", e, "", &id)

	long, ok := idx.ByIdentity(id)
	require.True(t, ok)
	assert.Equal(t, "logs/app.log", long)

	idx.Rehome("logs/app.log", "logs/app-renamed.log")

	got, _, ok := idx.Get("logs/app-renamed.log")
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, "logs/app-renamed.log", got.LongPath)

	long, ok = idx.ByIdentity(id)
	require.True(t, ok)
	assert.Equal(t, "logs/app-renamed.log", long)

	_, _, ok = idx.Get("logs/app.log")
	assert.False(t, ok, "old long path must no longer resolve after rehome")
}

// Invariant A: a single file is reachable by at most one long-path key at
// any time — re-Put'ing the same identity under a new path must retire the
// previous long-path entry, not leave two live entries for one file.
func TestIndex_Put_SameIdentityDifferentPath_RetiresPrevious(t *testing.T) {
	idx := New()
	id := Identity{Volume: 7, Bytes: [16]byte{9}}
	e1 := &Entry{LongPath: "logs/old.log"}
	idx.Put("logs/old.log", e1, "", &id)

	e2 := &Entry{LongPath: "logs/new.log"}
	idx.Put("logs/new.log", e2, "", &id)

	_, _, ok := idx.Get("logs/old.log")
	assert.False(t, ok)

	got, _, ok := idx.Get("logs/new.log")
	require.True(t, ok)
	assert.Same(t, e2, got)
}

func TestIndex_Remove_DropsAllAliases(t *testing.T) {
	idx := New()
	id := Identity{Volume: 1, Bytes: [16]byte{2}}
	e := &Entry{LongPath: "logs/app.log"}
	idx.Put("logs/app.log", e, "logs/APP~1.LOG", &id)

	idx.Remove("logs/app.log")

	_, _, ok := idx.Get("logs/app.log")
	assert.False(t, ok)
	_, _, ok = idx.Get("logs/APP~1.LOG")
	assert.False(t, ok)
	_, ok = idx.ByIdentity(id)
	assert.False(t, ok)
}

func TestIdentity_Less_OrdersByVolumeThenBytes(t *testing.T) {
	a := Identity{Volume: 1, Bytes: [16]byte{1}}
	b := Identity{Volume: 1, Bytes: [16]byte{2}}
	c := Identity{Volume: 2, Bytes: [16]byte{0}}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, b.Less(c))
}
