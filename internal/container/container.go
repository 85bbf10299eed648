package container

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"bitwash/adapters/postgres"
	"bitwash/adapters/quicktest"
	"bitwash/adapters/sts"
	"bitwash/app"
	"bitwash/internal/config"
	"bitwash/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	JobRepo ports.JobRepository

	// Oracles
	PrecheckOracle ports.OraclePort
	FullOracle     ports.OraclePort
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db
	c.JobRepo = postgres.NewJobRepository(db)
	return nil
}

// InitOracles constructs the precheck and full-test oracles. The
// external STS installation is validated here so a broken deployment
// fails at startup, not mid-job.
func (c *Container) InitOracles() error {
	full, err := sts.NewOracle(
		c.Config.Oracle.STSPath,
		c.Config.Oracle.MaxConcurrent,
		c.Config.Oracle.CallTimeout,
	)
	if err != nil {
		return err
	}
	c.FullOracle = full
	c.PrecheckOracle = quicktest.NewOracle()
	return nil
}

// PipelineFactory returns a constructor for per-job pipelines.
func (c *Container) PipelineFactory() func() *app.SanitizeService {
	return func() *app.SanitizeService {
		return app.NewSanitizeService(
			c.PrecheckOracle,
			c.FullOracle,
			c.Config.Pipeline,
			c.Config.Oracle.MaxConcurrent,
		)
	}
}
