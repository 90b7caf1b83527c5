package integrity

import (
	"context"

	"event-catalog/core/database"
	"event-catalog/core/storage"
	"event-catalog/feature/integrity/checks"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Status values reported per check.
const (
	StatusOK       = "ok"
	StatusMissing  = "missing"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// Section is the outcome of one check.
type Section struct {
	Status  string   `json:"status"`
	Missing []string `json:"missing,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Report combines every check.
type Report struct {
	Schema  *database.SchemaReport `json:"schema,omitempty"`
	Catalog Section                `json:"catalog"`
	Storage Section                `json:"storage"`
	Redis   Section                `json:"redis"`
}

// OK reports whether nothing failed. Disabled dependencies count as passing.
func (r Report) OK() bool {
	for _, s := range []Section{r.Catalog, r.Storage, r.Redis} {
		if s.Status != StatusOK && s.Status != StatusDisabled {
			return false
		}
	}
	return true
}

// Service runs deployment checks. Nil storage or redis clients mark those
// checks as disabled.
type Service struct {
	db       *gorm.DB
	client   storage.Client
	bucket   string
	prefixes []string
	redis    *redis.Client
	logger   *zap.Logger
}

// NewService creates a new integrity service. prefixes are the storage folders
// the deployment uses (source drops, run archives).
func NewService(db *gorm.DB, client storage.Client, bucket string, prefixes []string, rdb *redis.Client, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		client:   client,
		bucket:   bucket,
		prefixes: prefixes,
		redis:    rdb,
		logger:   logger,
	}
}

// CheckSchema verifies the catalog schema.
func (s *Service) CheckSchema() (*database.SchemaReport, Section) {
	report, err := checks.CheckSchema(s.db)
	if err != nil {
		return nil, Section{Status: StatusError, Error: err.Error()}
	}
	if report.OK() {
		return report, Section{Status: StatusOK}
	}
	missing := append([]string{}, report.MissingColumns...)
	missing = append(missing, report.MissingIndexes...)
	if report.TableMissing {
		missing = []string{report.Table}
	}
	return report, Section{Status: StatusMissing, Missing: missing}
}

// CheckStorage verifies the bucket and its folders, creating missing folders when fix is set.
func (s *Service) CheckStorage(ctx context.Context, fix bool) Section {
	if s.client == nil {
		return Section{Status: StatusDisabled}
	}
	missing, err := checks.CheckStructure(ctx, s.client, s.bucket, s.prefixes)
	if err != nil {
		return Section{Status: StatusError, Error: err.Error()}
	}
	if len(missing) == 0 {
		return Section{Status: StatusOK}
	}
	if fix {
		if err := checks.FixStructure(ctx, s.client, s.bucket, s.logger, missing); err != nil {
			return Section{Status: StatusError, Missing: missing, Error: err.Error()}
		}
		return Section{Status: StatusOK}
	}
	return Section{Status: StatusMissing, Missing: missing}
}

// CheckRedis pings Redis.
func (s *Service) CheckRedis(ctx context.Context) Section {
	if s.redis == nil {
		return Section{Status: StatusDisabled}
	}
	if err := checks.CheckRedis(ctx, s.redis); err != nil {
		return Section{Status: StatusError, Error: err.Error()}
	}
	return Section{Status: StatusOK}
}

// Run performs every check.
func (s *Service) Run(ctx context.Context, fix bool) Report {
	var r Report
	r.Schema, r.Catalog = s.CheckSchema()
	r.Storage = s.CheckStorage(ctx, fix)
	r.Redis = s.CheckRedis(ctx)
	return r
}
