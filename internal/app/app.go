package app

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughportal/config"
	"github.com/talkincode/toughportal/internal/device"
	"github.com/talkincode/toughportal/internal/domain"
	"github.com/talkincode/toughportal/internal/portal"
	"github.com/talkincode/toughportal/internal/repository"
	"github.com/talkincode/toughportal/pkg/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig    *config.AppConfig
	gormDB       *gorm.DB
	sched        *cron.Cron
	bus          EventBus.Bus
	device       device.HotspotClient
	contacts     *repository.GormContactRepository
	registerLogs *repository.GormRegisterLogRepository
	registrar    *portal.Registrar
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

// OverrideDevice replaces the hotspot client built from config (used in tests).
func (a *Application) OverrideDevice(client device.HotspotClient) {
	a.device = client
}

func (a *Application) Registrar() *portal.Registrar {
	return a.registrar
}

func (a *Application) Contacts() repository.ContactRepository {
	return a.contacts
}

func (a *Application) RegisterLogs() repository.RegisterLogRepository {
	return a.registerLogs
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// Init wires logging, storage, the device client and the registration workflow.
func (a *Application) Init() error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg.Logger)

	err = metrics.InitMetrics(cfg.System.Workdir)
	if err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if a.gormDB == nil {
		if cfg.Database.Type == "" {
			cfg.Database.Type = "postgres"
		}
		a.gormDB, err = getDatabase(cfg.Database, cfg.System.Workdir)
		if err != nil {
			return err
		}
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	}

	policy, err := portal.NewPolicy(cfg.Portal)
	if err != nil {
		return fmt.Errorf("portal config: %w", err)
	}

	if err := a.MigrateDB(false); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := repository.EnsureContactSchema(a.gormDB, policy.WriteMode); err != nil {
		return err
	}

	a.contacts = repository.NewGormContactRepository(a.gormDB)
	a.registerLogs = repository.NewGormRegisterLogRepository(a.gormDB)
	a.initEvents()

	if a.device == nil {
		a.device, err = newHotspotClient(cfg.Device)
		if err != nil {
			return err
		}
	}

	a.registrar = portal.NewRegistrar(policy, a.contacts, a.device, a.bus)

	a.initJob()
	return nil
}

func initLogger(cfg config.LogConfig) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		zapConfig.OutputPaths = []string{"stdout"}
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

// newHotspotClient builds the transport selected by device.transport.
func newHotspotClient(cfg config.DeviceConfig) (device.HotspotClient, error) {
	switch cfg.Transport {
	case "", "rest":
		return device.NewRestClient(device.RestOptions{
			BaseURL:       cfg.BaseURL,
			Username:      cfg.Username,
			Password:      cfg.Password,
			Timeout:       cfg.Timeout,
			ExistsPattern: cfg.ExistsPattern,
		})
	case "api":
		if cfg.Host == "" {
			return nil, fmt.Errorf("device host is required for the api transport")
		}
		return device.NewAPIClient(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Timeout, cfg.ExistsPattern), nil
	default:
		return nil, fmt.Errorf("unknown device transport %q", cfg.Transport)
	}
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

// InitDb drops and recreates every portal table.
func (a *Application) InitDb() error {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		return err
	}
	return repository.EnsureContactSchema(a.gormDB, a.appConfig.Portal.ContactWriteMode)
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		a.sched.Stop()
	}
	if a.device != nil {
		_ = a.device.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
