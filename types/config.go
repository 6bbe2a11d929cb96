package types

import "time"

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Database struct {
		Engine string                `yaml:"engine" envconfig:"DATABASE_ENGINE"`
		Sqlite *SqliteDatabaseConfig `yaml:"sqlite"`
		Pgsql  *PgsqlDatabaseConfig  `yaml:"pgsql"`
	} `yaml:"database"`

	Pruner PrunerConfig `yaml:"pruner"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`
}

// PrunerConfig holds all run parameters of the pruning engine.
type PrunerConfig struct {
	// InactivityDays is the inactivity threshold N: players without any hand
	// played within the last N days are considered inactive.
	InactivityDays uint `yaml:"inactivityDays" envconfig:"PRUNER_INACTIVITY_DAYS"`

	// HandLimit caps the total number of hands analyzed/deleted per hand type.
	HandLimit uint64 `yaml:"handLimit" envconfig:"PRUNER_HAND_LIMIT"`

	// HandTypes selects the hand tables to process: cash, tourney or both.
	HandTypes string `yaml:"handTypes" envconfig:"PRUNER_HAND_TYPES"`

	// Commit enables destructive mode. Without it every run is a dry run.
	Commit bool `yaml:"commit" envconfig:"PRUNER_COMMIT"`

	Chunks    uint   `yaml:"chunks" envconfig:"PRUNER_CHUNKS"`
	Workers   uint   `yaml:"workers" envconfig:"PRUNER_WORKERS"`
	BatchSize uint64 `yaml:"batchSize" envconfig:"PRUNER_BATCH_SIZE"`
	TwoPhase  bool   `yaml:"twoPhase" envconfig:"PRUNER_TWO_PHASE"`

	// ReportBucketDays is the width of the age buckets in the pruning ratio report.
	ReportBucketDays uint `yaml:"reportBucketDays" envconfig:"PRUNER_REPORT_BUCKET_DAYS"`

	// RetryBackoff is the delay before a failed chunk is retried once.
	RetryBackoff time.Duration `yaml:"retryBackoff" envconfig:"PRUNER_RETRY_BACKOFF"`

	// Schedule is an optional cron expression for recurring runs.
	// Empty means a single run.
	Schedule string `yaml:"schedule" envconfig:"PRUNER_SCHEDULE"`

	PgParallel PgParallelConfig `yaml:"pgParallel"`
}

// PgParallelConfig tunes per-connection intra-query parallelism of the
// postgres engine. Ignored on sqlite.
type PgParallelConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"PRUNER_PG_PARALLEL_ENABLED"`
	WorkersPerGather   uint   `yaml:"workersPerGather" envconfig:"PRUNER_PG_PARALLEL_WORKERS_PER_GATHER"`
	WorkMem            string `yaml:"workMem" envconfig:"PRUNER_PG_PARALLEL_WORK_MEM"`
	MaintenanceWorkMem string `yaml:"maintenanceWorkMem" envconfig:"PRUNER_PG_PARALLEL_MAINTENANCE_WORK_MEM"`
	DivideAmongWorkers bool   `yaml:"divideAmongWorkers" envconfig:"PRUNER_PG_PARALLEL_DIVIDE_AMONG_WORKERS"`
}

type SqliteDatabaseConfig struct {
	File         string `yaml:"file" envconfig:"DATABASE_SQLITE_FILE"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_SQLITE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_SQLITE_MAX_IDLE_CONNS"`
}

type PgsqlDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"DATABASE_PGSQL_USERNAME"`
	Password     string `yaml:"password" envconfig:"DATABASE_PGSQL_PASSWORD"`
	Name         string `yaml:"name" envconfig:"DATABASE_PGSQL_NAME"`
	Host         string `yaml:"host" envconfig:"DATABASE_PGSQL_HOST"`
	Port         string `yaml:"port" envconfig:"DATABASE_PGSQL_PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_MAX_IDLE_CONNS"`
}
