package services

import (
	"time"

	"github.com/compass-coaching/compass-go/internal/domain/servicerror"
	"github.com/compass-coaching/compass-go/internal/domain/user"
	"github.com/compass-coaching/compass-go/internal/infrastructure/caching/manager"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/performance"
)

// PreferenceService owns the user preference lifecycle: default creation at
// registration, reads through the cache, and the update operations the
// product exposes (new sessions, accepted terms, language, feedback answers).
type PreferenceService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	prefRepo    user.PreferenceRepository
	cache       *manager.Manager
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
	prefRepo user.PreferenceRepository,
	cache *manager.Manager,
) *PreferenceService {
	return &PreferenceService{
		logger:      logger,
		perfTracker: perfTracker,
		prefRepo:    prefRepo,
		cache:       cache,
	}
}

// CreateDefault creates the initial preference record for a new user.
func (p *PreferenceService) CreateDefault(userID string) (*user.Preference, error) {
	pref := &user.Preference{
		UserID:                   userID,
		Language:                 user.LanguageEnglish,
		Sessions:                 []int{},
		SensitiveDataRequirement: user.SensitiveDataRequired,
		AnsweredQuestions:        map[int][]string{},
		ExperimentGroups:         map[int]string{},
	}
	if err := p.prefRepo.Store(pref); err != nil {
		return nil, servicerror.New("PreferenceService", "CreateDefault", servicerror.KindRemote, "preference creation failed", err)
	}
	p.logger.Preferences().Info("Default preferences created", "userId", userID)
	return pref, nil
}

// Get returns the user's preference record, serving from the cache when it
// holds this user and refilling it on a backing-store read.
func (p *PreferenceService) Get(userID string) (*user.Preference, error) {
	marker := p.perfTracker.StartOperation("preferences_get")
	defer marker.Complete()

	if cached := p.cache.Preferences.Get(); cached != nil && cached.UserID == userID {
		marker.SetSuccess(true)
		return cached, nil
	}

	pref, err := p.prefRepo.FindByUserID(userID)
	if err != nil {
		return nil, servicerror.New("PreferenceService", "Get", servicerror.KindRemote, "preference lookup failed", err)
	}
	if pref == nil {
		return nil, servicerror.New("PreferenceService", "Get", servicerror.KindPrecondition, "no preferences for user", nil)
	}

	if err := p.cache.Preferences.Set(pref); err != nil {
		return nil, err
	}
	marker.SetSuccess(true)
	return pref, nil
}

// GetActiveSessionID returns the user's active session, which is always the
// head of the session list.
func (p *PreferenceService) GetActiveSessionID(userID string) (int, error) {
	pref, err := p.Get(userID)
	if err != nil {
		return 0, err
	}
	sessionID, ok := pref.ActiveSessionID()
	if !ok {
		return 0, servicerror.New("PreferenceService", "GetActiveSessionID", servicerror.KindPrecondition, "user has no sessions", nil)
	}
	return sessionID, nil
}

// StartSession prepends a new session to the user's list, making it active,
// and records the experiment group it was assigned.
func (p *PreferenceService) StartSession(userID string, sessionID int, group string) (*user.Preference, error) {
	marker := p.perfTracker.StartOperation("preferences_start_session")
	defer marker.Complete()

	pref, err := p.Get(userID)
	if err != nil {
		return nil, err
	}

	for _, existing := range pref.Sessions {
		if existing == sessionID {
			return nil, servicerror.New("PreferenceService", "StartSession", servicerror.KindValidation, "session already exists", nil)
		}
	}

	pref.Sessions = append([]int{sessionID}, pref.Sessions...)
	if pref.ExperimentGroups == nil {
		pref.ExperimentGroups = map[int]string{}
	}
	pref.ExperimentGroups[sessionID] = group

	if err := p.persist(pref); err != nil {
		return nil, err
	}
	p.logger.Preferences().Info("Session started", "userId", userID, "sessionId", sessionID, "group", group)
	marker.SetSuccess(true)
	return pref, nil
}

// AcceptTerms stamps the accepted-terms time. Accepting twice keeps the
// original timestamp.
func (p *PreferenceService) AcceptTerms(userID string, at time.Time) (*user.Preference, error) {
	pref, err := p.Get(userID)
	if err != nil {
		return nil, err
	}
	if pref.AcceptedTC != nil {
		return pref, nil
	}

	stamped := at.UTC()
	pref.AcceptedTC = &stamped
	if err := p.persist(pref); err != nil {
		return nil, err
	}
	p.logger.Preferences().Info("Terms accepted", "userId", userID)
	return pref, nil
}

// SetLanguage updates the UI language preference.
func (p *PreferenceService) SetLanguage(userID string, lang user.Language) (*user.Preference, error) {
	if lang != user.LanguageEnglish && lang != user.LanguageFrench {
		return nil, servicerror.New("PreferenceService", "SetLanguage", servicerror.KindValidation, "unsupported language", nil)
	}

	pref, err := p.Get(userID)
	if err != nil {
		return nil, err
	}
	pref.Language = lang
	if err := p.persist(pref); err != nil {
		return nil, err
	}
	return pref, nil
}

// SetSensitiveDataRequirement records progress through the sensitive personal
// data step.
func (p *PreferenceService) SetSensitiveDataRequirement(userID string, req user.SensitiveDataRequirement) (*user.Preference, error) {
	pref, err := p.Get(userID)
	if err != nil {
		return nil, err
	}
	pref.SensitiveDataRequirement = req
	if err := p.persist(pref); err != nil {
		return nil, err
	}
	return pref, nil
}

// RecordFeedbackAnswers merges answered feedback question keys for a session.
// Keys already recorded are kept, not duplicated.
func (p *PreferenceService) RecordFeedbackAnswers(userID string, sessionID int, questionKeys []string) (*user.Preference, error) {
	pref, err := p.Get(userID)
	if err != nil {
		return nil, err
	}

	if pref.AnsweredQuestions == nil {
		pref.AnsweredQuestions = map[int][]string{}
	}
	existing := pref.AnsweredQuestions[sessionID]
	seen := make(map[string]bool, len(existing))
	for _, key := range existing {
		seen[key] = true
	}
	for _, key := range questionKeys {
		if !seen[key] {
			existing = append(existing, key)
			seen[key] = true
		}
	}
	pref.AnsweredQuestions[sessionID] = existing

	if err := p.persist(pref); err != nil {
		return nil, err
	}
	p.logger.Preferences().Debug("Feedback answers recorded", "userId", userID, "sessionId", sessionID, "count", len(questionKeys))
	return pref, nil
}

// persist writes through to the repository and refreshes the cache so the
// two never diverge.
func (p *PreferenceService) persist(pref *user.Preference) error {
	if err := p.prefRepo.Update(pref); err != nil {
		return servicerror.New("PreferenceService", "persist", servicerror.KindRemote, "preference update failed", err)
	}
	return p.cache.Preferences.Set(pref)
}
