// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/compass-coaching/compass-go/internal/application/services"
	"github.com/compass-coaching/compass-go/internal/infrastructure/caching/manager"
	"github.com/compass-coaching/compass-go/internal/infrastructure/email"
	"github.com/compass-coaching/compass-go/internal/infrastructure/messaging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/performance"
	"github.com/compass-coaching/compass-go/internal/infrastructure/persistence/database"
	skillsrankingrepo "github.com/compass-coaching/compass-go/internal/infrastructure/persistence/skillsranking"
	storagerepo "github.com/compass-coaching/compass-go/internal/infrastructure/persistence/storage"
	userrepo "github.com/compass-coaching/compass-go/internal/infrastructure/persistence/user"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons)
	AuthService          *services.AuthService
	PreferenceService    *services.PreferenceService
	SkillsRankingService *services.SkillsRankingService
	StorageService       *services.StorageService

	// Infrastructure dependencies
	DB           *database.DB
	CacheManager *manager.Manager
	Broadcaster  messaging.Broadcaster
	EmailService email.Service
	Logger       *logging.ChanneledLogger
	PerfTracker  *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, logger *logging.ChanneledLogger, emailSvc email.Service) *Container {
	perfTracker := performance.NewTracker(nil)
	cacheManager := manager.NewManager(logger)
	broadcaster := messaging.NewAuthBroadcaster(logger)

	accountRepo := userrepo.NewSQLAccountRepository(db, logger)
	prefRepo := userrepo.NewSQLPreferenceRepository(db, logger)
	invitationRepo := userrepo.NewSQLInvitationRepository(db, logger)
	stateRepo := skillsrankingrepo.NewSQLStateRepository(db, logger)
	entryRepo := storagerepo.NewSQLEntryRepository(db, logger)

	prefService := services.NewPreferenceService(logger, perfTracker, prefRepo, cacheManager)
	rankingService := services.NewSkillsRankingService(logger, perfTracker, stateRepo, prefService)
	storageService := services.NewStorageService(logger, entryRepo)
	authService := services.NewAuthService(logger, perfTracker, accountRepo, prefService, invitationRepo, emailSvc, cacheManager, broadcaster)

	return &Container{
		AuthService:          authService,
		PreferenceService:    prefService,
		SkillsRankingService: rankingService,
		StorageService:       storageService,

		DB:           db,
		CacheManager: cacheManager,
		Broadcaster:  broadcaster,
		EmailService: emailSvc,
		Logger:       logger,
		PerfTracker:  perfTracker,
	}
}
