package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lcalzada-xor/vmscout/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SQLiteAdapter implements ports.CatalogStore using GORM and SQLite.
// Inside Transaction the same type wraps the transaction handle and
// serves as ports.CatalogTx.
type SQLiteAdapter struct {
	db *gorm.DB
}

var (
	_ ports.CatalogStore = (*SQLiteAdapter)(nil)
	_ ports.CatalogTx    = (*SQLiteAdapter)(nil)
)

// CVEModel is the GORM model for catalog CVEs.
type CVEModel struct {
	ID        string `gorm:"primaryKey;size:32"`
	Summary   *string
	CVSS      *float64
	Severity  *string `gorm:"size:16"`
	Published *time.Time
	KEV       bool `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CVEModel) TableName() string { return "cves" }

// CPERangeModel stores one CPE match entry of a CVE.
type CPERangeModel struct {
	ID        uint    `gorm:"primaryKey"`
	CVEID     string  `gorm:"column:cve_id;size:32;not null;index"`
	CPE23     string  `gorm:"column:cpe23;size:512;not null"`
	Vendor    *string `gorm:"size:128;index:idx_cpe_vendor_product"`
	Product   *string `gorm:"size:256;index:idx_cpe_vendor_product"`
	StartIncl *string `gorm:"column:vers_start_incl;size:64"`
	StartExcl *string `gorm:"column:vers_start_excl;size:64"`
	EndIncl   *string `gorm:"column:vers_end_incl;size:64"`
	EndExcl   *string `gorm:"column:vers_end_excl;size:64"`
}

func (CPERangeModel) TableName() string { return "cve_cpes" }

// AssetModel is the GORM model for inventoried machines.
type AssetModel struct {
	ID        uint    `gorm:"primaryKey"`
	Hostname  string  `gorm:"size:255;not null;uniqueIndex"`
	OSName    *string `gorm:"size:255"`
	OSVersion *string `gorm:"size:255"`
	OSBuild   *string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AssetModel) TableName() string { return "assets" }

// SoftwareModel stores one installed product of an asset.
type SoftwareModel struct {
	ID        uint    `gorm:"primaryKey"`
	AssetID   uint    `gorm:"not null;index;uniqueIndex:uix_asset_software"`
	Name      string  `gorm:"size:512;not null;uniqueIndex:uix_asset_software"`
	Version   *string `gorm:"size:128;uniqueIndex:uix_asset_software"`
	Publisher *string `gorm:"size:256"`
}

func (SoftwareModel) TableName() string { return "software" }

// ServiceModel stores one listening service of an asset.
type ServiceModel struct {
	ID           uint    `gorm:"primaryKey"`
	AssetID      uint    `gorm:"not null;index;uniqueIndex:uix_asset_service"`
	Protocol     *string `gorm:"size:10;uniqueIndex:uix_asset_service"`
	LocalAddress *string `gorm:"size:64;uniqueIndex:uix_asset_service"`
	LocalPort    int     `gorm:"not null;uniqueIndex:uix_asset_service"`
	Process      *string `gorm:"size:256"`
	Banner       *string `gorm:"size:1024"`
}

func (ServiceModel) TableName() string { return "services" }

// FindingModel stores a materialized asset/CVE finding.
type FindingModel struct {
	ID              uint     `gorm:"primaryKey"`
	AssetID         uint     `gorm:"not null;index;uniqueIndex:uix_asset_sw_cve"`
	SoftwareID      *uint    `gorm:"uniqueIndex:uix_asset_sw_cve"`
	CVEID           string   `gorm:"column:cve_id;size:32;not null;index;uniqueIndex:uix_asset_sw_cve"`
	Product         *string  `gorm:"size:256"`
	DetectedVersion *string  `gorm:"size:128"`
	Severity        *string  `gorm:"size:16"`
	CVSS            *float64 `gorm:"column:cvss"`
	KEV             bool     `gorm:"not null;default:false"`
	CreatedAt       time.Time
}

func (FindingModel) TableName() string { return "vuln_findings" }

// NewSQLiteAdapter opens the database at path, creating its directory
// when needed, and migrates the schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutQueryVariables())); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}

	// One connection: every transaction is atomic and serialized, and
	// an in-memory database stays the same database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, err
	}
	return &SQLiteAdapter{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&CVEModel{}, &CPERangeModel{}, &AssetModel{}, &SoftwareModel{}, &ServiceModel{}, &FindingModel{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_findings_asset_id_desc ON vuln_findings(asset_id, id DESC)")
	return nil
}

// Transaction runs fn in a database transaction.
func (a *SQLiteAdapter) Transaction(ctx context.Context, fn func(tx ports.CatalogTx) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLiteAdapter{db: tx})
	})
}

// Close closes the database connection.
func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *SQLiteAdapter) conn(ctx context.Context) *gorm.DB {
	return a.db.WithContext(ctx)
}
