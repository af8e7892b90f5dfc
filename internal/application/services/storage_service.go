package services

import (
	"encoding/json"
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/storage"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
)

// StorageService exposes the per-user durable slots behind typed operations.
// Values are opaque JSON documents; the service validates only the key and
// that the payload is well-formed JSON.
type StorageService struct {
	logger  *logging.ChanneledLogger
	entries storage.Repository
	now     func() time.Time
}

// NewStorageService creates a new storage service
func NewStorageService(logger *logging.ChanneledLogger, entries storage.Repository) *StorageService {
	return &StorageService{
		logger:  logger,
		entries: entries,
		now:     time.Now,
	}
}

// Get returns the raw JSON stored under a slot, or nil when empty.
func (s *StorageService) Get(userID string, key storage.Key) (json.RawMessage, error) {
	if !key.IsValid() {
		return nil, servicerror.New("StorageService", "Get", servicerror.KindValidation, "unknown storage key", nil)
	}

	entry, err := s.entries.Find(userID, key)
	if err != nil {
		return nil, servicerror.New("StorageService", "Get", servicerror.KindRemote, "storage read failed", err)
	}
	if entry == nil {
		return nil, nil
	}
	return json.RawMessage(entry.Value), nil
}

// Set writes a JSON document under a slot, replacing any previous value.
func (s *StorageService) Set(userID string, key storage.Key, value json.RawMessage) error {
	if !key.IsValid() {
		return servicerror.New("StorageService", "Set", servicerror.KindValidation, "unknown storage key", nil)
	}
	if !json.Valid(value) {
		return servicerror.New("StorageService", "Set", servicerror.KindValidation, "value is not valid JSON", nil)
	}

	entry := &storage.Entry{
		UserID:  userID,
		Key:     key,
		Value:   value,
		Changed: s.now().UTC(),
	}
	if err := s.entries.Put(entry); err != nil {
		return servicerror.New("StorageService", "Set", servicerror.KindRemote, "storage write failed", err)
	}
	return nil
}

// GetUserPreferences reads the cached preference snapshot slot.
func (s *StorageService) GetUserPreferences(userID string) (json.RawMessage, error) {
	return s.Get(userID, storage.KeyUserPreferences)
}

// SetUserPreferences writes the cached preference snapshot slot.
func (s *StorageService) SetUserPreferences(userID string, value json.RawMessage) error {
	return s.Set(userID, storage.KeyUserPreferences, value)
}

// GetPersonalInfo reads the personal information draft slot.
func (s *StorageService) GetPersonalInfo(userID string) (json.RawMessage, error) {
	return s.Get(userID, storage.KeyPersonalInfo)
}

// SetPersonalInfo writes the personal information draft slot.
func (s *StorageService) SetPersonalInfo(userID string, value json.RawMessage) error {
	return s.Set(userID, storage.KeyPersonalInfo, value)
}

// SetLoginMethod records how the user last signed in.
func (s *StorageService) SetLoginMethod(userID, method string) error {
	encoded, err := json.Marshal(method)
	if err != nil {
		return servicerror.New("StorageService", "SetLoginMethod", servicerror.KindValidation, "method not encodable", err)
	}
	return s.Set(userID, storage.KeyLoginMethod, encoded)
}

// Clear removes a slot. Used on logout for user-scoped drafts.
func (s *StorageService) Clear(userID string, key storage.Key) error {
	if !key.IsValid() {
		return servicerror.New("StorageService", "Clear", servicerror.KindValidation, "unknown storage key", nil)
	}
	if err := s.entries.Delete(userID, key); err != nil {
		return servicerror.New("StorageService", "Clear", servicerror.KindRemote, "storage delete failed", err)
	}
	return nil
}
