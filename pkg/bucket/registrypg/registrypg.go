// Package registrypg is a Postgres-backed bucket.Registry, for deployments
// that want the bucket name -> BucketMetadata mapping to survive gateway
// restarts on a shared database rather than in a single process's memory.
// Schema is managed by golang-migrate against an embedded SQL migration;
// queries go through gorm.
package registrypg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/bucket"
	"github.com/fula-project/gateway/pkg/bucket/registrypg/migrations"
)

// bucketRow is the gorm model backing the buckets table. Tags/CORS/
// lifecycle are stored as JSON text rather than mapped field-by-field,
// since they are opaque, variable-shaped maps/slices the registry never
// queries by content.
type bucketRow struct {
	Name                string `gorm:"primaryKey"`
	CreatedAt           time.Time
	OwnerID             string
	RootAddress         string
	HasRoot             bool
	Versioning          bool
	DefaultStorageClass string
	TagsJSON            string `gorm:"column:tags"`
	CORSRulesJSON       string `gorm:"column:cors_rules"`
	LifecycleRulesJSON  string `gorm:"column:lifecycle_rules"`
	ObjectCount         uint64
	TotalSize           uint64
	LastModified        time.Time
}

func (bucketRow) TableName() string { return "buckets" }

func toRow(m *bucket.BucketMetadata) (*bucketRow, error) {
	row := &bucketRow{
		Name:                m.Name,
		CreatedAt:           m.CreatedAt,
		OwnerID:             m.OwnerID,
		HasRoot:             m.HasRoot,
		Versioning:          m.Versioning,
		DefaultStorageClass: m.DefaultStorageClass,
		ObjectCount:         m.ObjectCount,
		TotalSize:           m.TotalSize,
		LastModified:        m.LastModified,
	}
	if m.HasRoot {
		row.RootAddress = m.RootAddress.String()
	}
	for _, enc := range []struct {
		v   any
		dst *string
	}{
		{m.Tags, &row.TagsJSON},
		{m.CORSRules, &row.CORSRulesJSON},
		{m.Lifecycle, &row.LifecycleRulesJSON},
	} {
		b, err := json.Marshal(enc.v)
		if err != nil {
			return nil, fmt.Errorf("registrypg: encoding metadata: %w", err)
		}
		*enc.dst = string(b)
	}
	return row, nil
}

func fromRow(row *bucketRow) (*bucket.BucketMetadata, error) {
	m := &bucket.BucketMetadata{
		Name:                row.Name,
		CreatedAt:           row.CreatedAt,
		OwnerID:             row.OwnerID,
		HasRoot:             row.HasRoot,
		Versioning:          row.Versioning,
		DefaultStorageClass: row.DefaultStorageClass,
		ObjectCount:         row.ObjectCount,
		TotalSize:           row.TotalSize,
		LastModified:        row.LastModified,
	}
	if row.HasRoot {
		addr, err := address.Parse(row.RootAddress)
		if err != nil {
			return nil, fmt.Errorf("registrypg: parsing root address: %w", err)
		}
		m.RootAddress = addr
	}
	if row.TagsJSON != "" && row.TagsJSON != "null" {
		if err := json.Unmarshal([]byte(row.TagsJSON), &m.Tags); err != nil {
			return nil, fmt.Errorf("registrypg: decoding tags: %w", err)
		}
	}
	if row.CORSRulesJSON != "" && row.CORSRulesJSON != "null" {
		if err := json.Unmarshal([]byte(row.CORSRulesJSON), &m.CORSRules); err != nil {
			return nil, fmt.Errorf("registrypg: decoding cors rules: %w", err)
		}
	}
	if row.LifecycleRulesJSON != "" && row.LifecycleRulesJSON != "null" {
		if err := json.Unmarshal([]byte(row.LifecycleRulesJSON), &m.Lifecycle); err != nil {
			return nil, fmt.Errorf("registrypg: decoding lifecycle rules: %w", err)
		}
	}
	return m, nil
}

// Store is a gorm-backed bucket.Registry.
type Store struct {
	db *gorm.DB
}

// New connects to dsn, runs pending migrations, and returns a ready Store.
func New(ctx context.Context, dsn string) (*Store, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("registrypg: connecting: %w", err)
	}
	return &Store{db: db.WithContext(ctx)}, nil
}

func runMigrations(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("registrypg: opening migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{
		MigrationsTable: "schema_migrations",
		DatabaseName:    "fula_gateway",
	})
	if err != nil {
		return fmt.Errorf("registrypg: building migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("registrypg: loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("registrypg: building migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("registrypg: applying migrations: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, meta *bucket.BucketMetadata) error {
	row, err := toRow(meta)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return bucket.ErrBucketAlreadyExists
		}
		return fmt.Errorf("registrypg: create: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, name string) (*bucket.BucketMetadata, error) {
	var row bucketRow
	if err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, bucket.ErrBucketNotFound
		}
		return nil, fmt.Errorf("registrypg: get: %w", err)
	}
	return fromRow(&row)
}

func (s *Store) Save(ctx context.Context, meta *bucket.BucketMetadata) error {
	row, err := toRow(meta)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&bucketRow{}).Where("name = ?", meta.Name).Updates(row)
	if result.Error != nil {
		return fmt.Errorf("registrypg: save: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bucket.ErrBucketNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	result := s.db.WithContext(ctx).Delete(&bucketRow{}, "name = ?", name)
	if result.Error != nil {
		return fmt.Errorf("registrypg: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return bucket.ErrBucketNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*bucket.BucketMetadata, error) {
	var rows []bucketRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("registrypg: list: %w", err)
	}
	out := make([]*bucket.BucketMetadata, 0, len(rows))
	for i := range rows {
		m, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && containsAny(err.Error(), "duplicate key value violates unique constraint", "UNIQUE constraint failed")
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if len(sub) > 0 && len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

var _ bucket.Registry = (*Store)(nil)
