package services

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/storage"
)

type memEntryRepo struct {
	mu      sync.Mutex
	entries map[string]*storage.Entry // userID + "/" + key
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{entries: map[string]*storage.Entry{}}
}

func entryKey(userID string, key storage.Key) string {
	return userID + "/" + string(key)
}

func (m *memEntryRepo) Find(userID string, key storage.Key) (*storage.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entryKey(userID, key)]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (m *memEntryRepo) Put(entry *storage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries[entryKey(entry.UserID, entry.Key)] = &copied
	return nil
}

func (m *memEntryRepo) Delete(userID string, key storage.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, entryKey(userID, key))
	return nil
}

func newStorageService(t *testing.T) (*StorageService, *memEntryRepo) {
	t.Helper()
	repo := newMemEntryRepo()
	return NewStorageService(quietLogger(t), repo), repo
}

func TestStorageRoundTrip(t *testing.T) {
	svc, _ := newStorageService(t)

	require.NoError(t, svc.SetPersonalInfo("user-1", json.RawMessage(`{"firstName":"Alice"}`)))
	value, err := svc.GetPersonalInfo("user-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstName":"Alice"}`, string(value))

	// Writing again replaces, never merges.
	require.NoError(t, svc.SetPersonalInfo("user-1", json.RawMessage(`{"lastName":"Smith"}`)))
	value, err = svc.GetPersonalInfo("user-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastName":"Smith"}`, string(value))
}

func TestStorageEmptySlotReadsNil(t *testing.T) {
	svc, _ := newStorageService(t)

	value, err := svc.GetUserPreferences("user-1")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStorageRejectsUnknownKey(t *testing.T) {
	svc, _ := newStorageService(t)

	_, err := svc.Get("user-1", storage.Key("scratch"))
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))

	err = svc.Set("user-1", storage.Key("scratch"), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestStorageRejectsMalformedJSON(t *testing.T) {
	svc, _ := newStorageService(t)

	err := svc.SetPersonalInfo("user-1", json.RawMessage(`{"unterminated`))
	require.Error(t, err)
	assert.Equal(t, servicerror.KindValidation, servicerror.KindOf(err))
}

func TestStorageSlotsAreScopedPerUser(t *testing.T) {
	svc, _ := newStorageService(t)

	require.NoError(t, svc.SetLoginMethod("user-1", "password"))
	value, err := svc.Get("user-2", storage.KeyLoginMethod)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStorageClearIsIdempotent(t *testing.T) {
	svc, _ := newStorageService(t)

	require.NoError(t, svc.SetPersonalInfo("user-1", json.RawMessage(`{}`)))
	require.NoError(t, svc.Clear("user-1", storage.KeyPersonalInfo))
	require.NoError(t, svc.Clear("user-1", storage.KeyPersonalInfo))

	value, err := svc.GetPersonalInfo("user-1")
	require.NoError(t, err)
	assert.Nil(t, value)
}
