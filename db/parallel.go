package db

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nickmjain/PokerTracker-Hand-pruner/dbtypes"
	"github.com/nickmjain/PokerTracker-Hand-pruner/types"
)

// memSettingPattern matches postgres memory settings like "256MB" or "1GB".
// SET statements cannot take bind parameters, so the values are validated
// before interpolation.
var memSettingPattern = regexp.MustCompile(`^([0-9]+)\s*(kB|MB|GB|TB)?$`)

// ApplyTxParallelism requests intra-query parallelism from the postgres
// engine for the current transaction via SET LOCAL, so the settings expire
// with the transaction. When both parallelism axes are enabled the per-gather
// worker budget and memory budgets are divided by the process worker count to
// bound total resource usage. No-op on sqlite.
func ApplyTxParallelism(tx *sqlx.Tx, cfg *types.PgParallelConfig, processWorkers uint) error {
	if DbEngine != dbtypes.DBEnginePgsql || !cfg.Enabled {
		return nil
	}

	divisor := uint(1)
	if cfg.DivideAmongWorkers && processWorkers > 1 {
		divisor = processWorkers
	}

	gatherWorkers := cfg.WorkersPerGather / divisor
	if gatherWorkers < 1 {
		gatherWorkers = 1
	}
	if _, err := tx.Exec(fmt.Sprintf(`SET LOCAL max_parallel_workers_per_gather = %d`, gatherWorkers)); err != nil {
		return fmt.Errorf("error setting parallel worker budget: %w", err)
	}

	if cfg.WorkMem != "" {
		setting, err := divideMemSetting(cfg.WorkMem, divisor)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(fmt.Sprintf(`SET LOCAL work_mem = '%s'`, setting)); err != nil {
			return fmt.Errorf("error setting work_mem: %w", err)
		}
	}

	if cfg.MaintenanceWorkMem != "" {
		setting, err := divideMemSetting(cfg.MaintenanceWorkMem, divisor)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(fmt.Sprintf(`SET LOCAL maintenance_work_mem = '%s'`, setting)); err != nil {
			return fmt.Errorf("error setting maintenance_work_mem: %w", err)
		}
	}

	return nil
}

// divideMemSetting validates a memory setting and divides its numeric part.
func divideMemSetting(setting string, divisor uint) (string, error) {
	match := memSettingPattern.FindStringSubmatch(strings.TrimSpace(setting))
	if match == nil {
		return "", fmt.Errorf("invalid memory setting: %q", setting)
	}
	value, err := strconv.ParseUint(match[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid memory setting: %q", setting)
	}
	value /= uint64(divisor)
	if value < 1 {
		value = 1
	}
	return fmt.Sprintf("%d%s", value, match[2]), nil
}
