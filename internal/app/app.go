// Package app wires the configured stores and services together. The server
// and the admin CLI share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/saleflow/backend/internal/activity"
	"github.com/saleflow/backend/internal/config"
	"github.com/saleflow/backend/internal/db"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/messaging"
	"github.com/saleflow/backend/internal/reporting"
	"github.com/saleflow/backend/internal/routes"
	"github.com/saleflow/backend/internal/services"
	"github.com/saleflow/backend/internal/session"
	"github.com/saleflow/backend/internal/store"
)

type App struct {
	Config *config.Config
	Store  store.Store
	DB     *gorm.DB

	Recorder *activity.Recorder
	Sessions *session.Manager

	Auth        *services.AuthService
	Users       *services.UserService
	Departments *services.DepartmentService
	Records     *services.RecordService
	Exports     *services.ExportService
	Dashboards  *services.DashboardService
	Targets     *services.TargetService
	Messages    *services.MessageService
	Activities  *services.ActivityService

	Hub    *messaging.Hub
	Poller *messaging.Poller

	mongo *mongo.Client
	redis *redis.Client
}

// New connects the backing stores named in cfg and builds every service.
func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.openStore(); err != nil {
		return nil, err
	}
	if err := a.openActivity(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openSessions(); err != nil {
		a.Close()
		return nil, err
	}

	dir := services.NewDirectory(a.Store)
	defaults := reporting.Targets{
		Revenue:       cfg.TargetRevenue,
		Appointments:  cfg.TargetAppointments,
		Consultations: cfg.TargetConsultations,
	}

	a.Auth = services.NewAuthService(a.Store, a.Sessions, a.Recorder, cfg.PasswordMinLength)
	a.Users = services.NewUserService(a.Store, dir, a.Recorder)
	a.Departments = services.NewDepartmentService(a.Store, dir, a.Recorder, cfg.HQDeleteTicks, cfg.HQDeleteTick)
	a.Records = services.NewRecordService(a.Store, dir, a.Recorder)
	a.Exports = services.NewExportService(a.Records)
	a.Targets = services.NewTargetService(a.Store, dir, defaults)
	a.Dashboards = services.NewDashboardService(dir, a.Targets)
	a.Messages = services.NewMessageService(a.Store, dir)
	a.Activities = services.NewActivityService(a.Recorder)

	a.Hub = messaging.NewHub()
	a.Poller = messaging.NewPoller(a.Messages.Fetch, cfg.MessagePollInterval, a.Hub)
	return a, nil
}

func (a *App) openStore() error {
	switch a.Config.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart", nil)
		a.Store = store.NewMemoryStore()
	default:
		database, err := db.Connect(a.Config)
		if err != nil {
			return err
		}
		if err := db.AutoMigrate(database); err != nil {
			return err
		}
		a.DB = database
		a.Store = store.NewGormStore(database)
	}
	return nil
}

func (a *App) openActivity() error {
	var sink activity.Sink
	switch a.Config.ActivityDriver {
	case config.ActivityDriverMongo:
		client, err := db.ConnectMongo(a.Config)
		if err != nil {
			return err
		}
		a.mongo = client
		sink = activity.NewMongoSink(client.Database(a.Config.MongoDatabase))
	case config.ActivityDriverMemory:
		sink = activity.NewMemorySink()
	default:
		sink = activity.NewGormSink(a.DB)
	}
	a.Recorder = activity.NewRecorder(sink)
	return nil
}

func (a *App) openSessions() error {
	var backend session.Store
	if a.Config.RedisAddr != "" {
		client, err := session.NewRedisClient(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
		if err != nil {
			return err
		}
		a.redis = client
		backend = session.NewRedisStore(client)
	} else {
		logger.Warn("REDIS_ADDR not set, sessions are kept in memory", nil)
		backend = session.NewMemoryStore()
	}
	a.Sessions = session.NewManager(backend, a.Config.Secret(), a.Config.SessionTTL)
	return nil
}

// Bootstrap makes sure the root account and head office exist.
func (a *App) Bootstrap(ctx context.Context) error {
	if err := a.Auth.EnsureSystem(ctx, a.Config.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return nil
}

// Dependencies hands the services to the router.
func (a *App) Dependencies() routes.Dependencies {
	return routes.Dependencies{
		Sessions:    a.Sessions,
		Auth:        a.Auth,
		Users:       a.Users,
		Departments: a.Departments,
		Records:     a.Records,
		Exports:     a.Exports,
		Dashboards:  a.Dashboards,
		Targets:     a.Targets,
		Messages:    a.Messages,
		Activities:  a.Activities,
		Hub:         a.Hub,
		Poller:      a.Poller,
	}
}

// Health pings every backing service that is configured.
func (a *App) Health(ctx context.Context) map[string]error {
	out := map[string]error{"database": a.Store.Ping(ctx)}
	if a.mongo != nil {
		out["mongo"] = a.mongo.Ping(ctx, nil)
	}
	if a.redis != nil {
		out["redis"] = a.redis.Ping(ctx).Err()
	}
	return out
}

// Close aborts a pending HQ deletion and releases every connection.
func (a *App) Close() {
	if a.Departments != nil && a.Departments.CancelHQDeletion() {
		logger.Warn("Pending HQ deletion cancelled by shutdown", nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			logger.WithError(err, "app").Warn("MongoDB disconnect failed")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.WithError(err, "app").Warn("Redis close failed")
		}
	}
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			logger.WithError(err, "app").Warn("Database close failed")
		}
	}
}
