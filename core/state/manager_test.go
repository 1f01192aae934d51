package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/definex/definex-libs/storage"
)

type kvRecord struct {
	ID     uint64
	Amount *big.Int
	Owner  [20]byte
}

func TestKVRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	record := kvRecord{ID: 7, Amount: big.NewInt(42_000), Owner: [20]byte{0xAA}}
	require.NoError(t, m.KVPut([]byte("record/7"), &record))

	var decoded kvRecord
	ok, err := m.KVGet([]byte("record/7"), &decoded)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.ID, decoded.ID)
	require.Zero(t, record.Amount.Cmp(decoded.Amount))
	require.Equal(t, record.Owner, decoded.Owner)

	ok, err = m.KVGet([]byte("record/8"), &decoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKVDelete(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	require.NoError(t, m.KVPut([]byte("key"), uint64(1)))
	require.NoError(t, m.KVDelete([]byte("key")))

	var out uint64
	ok, err := m.KVGet([]byte("key"), &out)
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting twice is fine.
	require.NoError(t, m.KVDelete([]byte("key")))
}

func TestKVAppendRemoveList(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := []byte("index")

	require.NoError(t, m.KVAppend(key, []byte{1}))
	require.NoError(t, m.KVAppend(key, []byte{2}))
	require.NoError(t, m.KVAppend(key, []byte{1})) // duplicate ignored

	var list [][]byte
	require.NoError(t, m.KVGetList(key, &list))
	require.Equal(t, [][]byte{{1}, {2}}, list)

	require.NoError(t, m.KVRemove(key, []byte{1}))
	require.NoError(t, m.KVGetList(key, &list))
	require.Equal(t, [][]byte{{2}}, list)

	require.NoError(t, m.KVRemove([]byte("absent"), []byte{9}))
}

func TestKVGetListEmptyInitialisesSlice(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	var list []uint64
	require.NoError(t, m.KVGetList([]byte("absent"), &list))
	require.NotNil(t, list)
	require.Len(t, list, 0)
}

func TestKVPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	m1 := NewManager(db1)
	require.NoError(t, m1.KVPut([]byte("counter"), uint64(99)))
	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	var restored uint64
	ok, err := NewManager(db2).KVGet([]byte("counter"), &restored)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(99), restored)
}
