package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sigil/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// schemaVersion is the newest schema this build understands. Migrations are
// additive only; destructive changes require a major version bump.
const schemaVersion = 1

var errDBUnavailable = errors.New("database not configured")

// Registry is the single shared handle to the certificate store. Every
// component receives it at construction; nothing reaches it through globals.
type Registry struct {
	db *gorm.DB

	Certificates  *CertificateRepository
	Keys          *CAKeyRepository
	Revocations   *RevocationRepository
	OCSPCache     *OCSPCacheRepository
	Verifications *VerificationRepository
	Audit         *AuditRepository
}

func Open(dsn string) (*Registry, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewRegistry(gdb), nil
}

func NewRegistry(gdb *gorm.DB) *Registry {
	return &Registry{
		db:            gdb,
		Certificates:  &CertificateRepository{db: gdb},
		Keys:          &CAKeyRepository{db: gdb},
		Revocations:   &RevocationRepository{db: gdb},
		OCSPCache:     &OCSPCacheRepository{db: gdb},
		Verifications: &VerificationRepository{db: gdb},
		Audit:         &AuditRepository{db: gdb},
	}
}

func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate brings the schema up to schemaVersion. A database written by a
// newer build is refused rather than migrated down.
func (r *Registry) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errDBUnavailable
	}
	gdb := r.db.WithContext(ctx)

	if gdb.Migrator().HasTable(&SchemaVersionModel{}) {
		var current int64
		err := gdb.Model(&SchemaVersionModel{}).Select("COALESCE(MAX(version), 0)").Scan(&current).Error
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if current > schemaVersion {
			return fmt.Errorf("database schema version %d is newer than supported %d", current, schemaVersion)
		}
	}

	err := gdb.AutoMigrate(
		&SchemaVersionModel{},
		&CertificateModel{},
		&RevocationModel{},
		&OCSPCacheModel{},
		&VerificationModel{},
		&CAKeyModel{},
		&AuditLogModel{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	var count int64
	if err := gdb.Model(&SchemaVersionModel{}).Where("version = ?", schemaVersion).Count(&count).Error; err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if count == 0 {
		row := SchemaVersionModel{Version: schemaVersion, AppliedAt: time.Now().UTC()}
		if err := gdb.Create(&row).Error; err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

// translateErr maps storage errors onto the domain error kinds.
func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrConflict
	default:
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringFromPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
