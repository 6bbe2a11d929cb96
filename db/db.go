package db

import (
	"context"
	"embed"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
	"github.com/nickmjain/PokerTracker-Hand-pruner/utils"
)

//go:embed schema/pgsql/*.sql
var EmbedPgsqlSchema embed.FS

//go:embed schema/sqlite/*.sql
var EmbedSqliteSchema embed.FS

// DbEngine identifies the active database engine.
var DbEngine dbtypes.DBEngineType

// ReaderDb is used for analysis queries, writerDb for transactional work.
// Both point at the same pool unless a read replica is configured later.
var ReaderDb *sqlx.DB
var writerDb *sqlx.DB
var writerMutex sync.Mutex

var logger = logrus.StandardLogger().WithField("module", "db")

func checkDbConn(dbConn *sqlx.DB, dataBaseName string) {
	// The golang sql driver does not properly implement PingContext
	// therefore we use a timer to catch db connection timeouts
	dbConnectionTimeout := time.NewTimer(15 * time.Second)

	go func() {
		<-dbConnectionTimeout.C
		logger.Fatalf("timeout while connecting to %s", dataBaseName)
	}()

	err := dbConn.Ping()
	if err != nil {
		logger.Fatalf("unable to Ping %s: %s", dataBaseName, err)
	}

	dbConnectionTimeout.Stop()
}

func mustInitSqlite(config *types.SqliteDatabaseConfig) (*sqlx.DB, *sqlx.DB) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 4
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing sqlite connection to %v with %v/%v conn limit", config.File, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)", config.File))
	if err != nil {
		utils.LogFatal(err, "error opening sqlite database", 0)
	}

	checkDbConn(dbConn, "database")
	dbConn.SetConnMaxIdleTime(0)
	dbConn.SetConnMaxLifetime(0)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	dbConn.MustExec("PRAGMA journal_mode = WAL")

	return dbConn, dbConn
}

func mustInitPgsql(config *types.PgsqlDatabaseConfig) (*sqlx.DB, *sqlx.DB) {
	if config.MaxOpenConns == 0 {
		// one connection per worker plus headroom for the resolver and reporting
		config.MaxOpenConns = int(utils.Config.Pruner.Workers) + 2
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 2
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing pgsql connection to %v with %v/%v conn limit", config.Host, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s", config.Username, config.Password, config.Host, config.Port, config.Name))
	if err != nil {
		utils.LogFatal(err, "error opening pgsql database", 0)
	}

	checkDbConn(dbConn, "database")
	dbConn.SetConnMaxIdleTime(time.Second * 30)
	dbConn.SetConnMaxLifetime(time.Second * 60)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, dbConn
}

func MustInitDB() {
	if utils.Config.Database.Engine == "sqlite" {
		DbEngine = dbtypes.DBEngineSqlite
		writerDb, ReaderDb = mustInitSqlite(utils.Config.Database.Sqlite)
	} else if utils.Config.Database.Engine == "pgsql" {
		DbEngine = dbtypes.DBEnginePgsql
		writerDb, ReaderDb = mustInitPgsql(utils.Config.Database.Pgsql)
	} else {
		logger.Fatalf("unknown database engine type: %s", utils.Config.Database.Engine)
	}
}

func MustCloseDB() {
	err := writerDb.Close()
	if err != nil {
		logger.Errorf("Error closing db connection: %v", err)
	}
}

// RunDBTransaction runs handler within a single transaction.
// The transaction is rolled back unless the handler succeeds and commit succeeds.
func RunDBTransaction(ctx context.Context, handler func(tx *sqlx.Tx) error) error {
	if DbEngine == dbtypes.DBEngineSqlite {
		// sqlite only supports a single writer
		writerMutex.Lock()
		defer writerMutex.Unlock()
	}

	tx, err := writerDb.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting db transaction: %w", err)
	}

	defer tx.Rollback()

	err = handler(tx)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("error committing db transaction: %w", err)
	}

	return nil
}

// ApplyEmbeddedDbSchema creates the PT4 hand tables the pruner operates on.
// Used to bootstrap local/test databases, never against a live PT4 instance.
func ApplyEmbeddedDbSchema(version int64) error {
	var engineDialect string
	var schemaDirectory string
	switch DbEngine {
	case dbtypes.DBEnginePgsql:
		goose.SetBaseFS(EmbedPgsqlSchema)
		engineDialect = "postgres"
		schemaDirectory = "schema/pgsql"
	case dbtypes.DBEngineSqlite:
		goose.SetBaseFS(EmbedSqliteSchema)
		engineDialect = "sqlite3"
		schemaDirectory = "schema/sqlite"
	default:
		logger.Fatalf("unknown database engine")
	}

	if err := goose.SetDialect(engineDialect); err != nil {
		return err
	}

	if version == -2 {
		if err := goose.Up(writerDb.DB, schemaDirectory); err != nil {
			return err
		}
	} else if version == -1 {
		if err := goose.UpByOne(writerDb.DB, schemaDirectory); err != nil {
			return err
		}
	} else {
		if err := goose.UpTo(writerDb.DB, schemaDirectory, version); err != nil {
			return err
		}
	}

	return nil
}

// EngineQuery selects the engine specific variant of a query.
func EngineQuery(queryMap map[dbtypes.DBEngineType]string) string {
	if queryMap[DbEngine] != "" {
		return queryMap[DbEngine]
	}
	return queryMap[dbtypes.DBEngineAny]
}
