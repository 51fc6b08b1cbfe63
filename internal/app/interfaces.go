package app

import (
	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughportal/config"
	"github.com/talkincode/toughportal/internal/portal"
	"github.com/talkincode/toughportal/internal/repository"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// RegistrarProvider provides the registration workflow
type RegistrarProvider interface {
	Registrar() *portal.Registrar
}

// ContactsProvider provides read access to recorded contacts
type ContactsProvider interface {
	Contacts() repository.ContactRepository
}

// RegisterLogsProvider provides read access to the registration audit log
type RegisterLogsProvider interface {
	RegisterLogs() repository.RegisterLogRepository
}

// AppContext combines the provider interfaces the HTTP layer depends on
type AppContext interface {
	DBProvider
	ConfigProvider
	RegistrarProvider
	ContactsProvider
	RegisterLogsProvider
}
