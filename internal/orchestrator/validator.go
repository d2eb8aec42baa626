package orchestrator

import (
	"context"
	"fmt"

	"github.com/wrgoldstein/copypg/internal/logging"
)

// TableInspector reads table state from the local database.
type TableInspector interface {
	TableExists(ctx context.Context, table string) (bool, error)
	RowCount(ctx context.Context, table string) (int64, error)
	PartitionRowCount(ctx context.Context, table, column string, values []string) (int64, error)
}

// Validate reports on every configured table in the local database:
// existence, row counts, and for sampled tables how many rows belong to
// the configured partition key set. Returns an error if any table is
// missing or unreadable.
func (o *Orchestrator) Validate(ctx context.Context, ins TableInspector) error {
	logging.Info("Validation results for %s:", o.cfg.Target.Database)
	logging.Info("----------------------------------------")

	sampled := make(map[string]bool, len(o.cfg.Tables.Sampled))
	for name := range o.cfg.Tables.Sampled {
		sampled[name] = true
	}

	var missing, failed int
	for _, table := range o.cfg.AllTables() {
		exists, err := ins.TableExists(ctx, table)
		if err != nil {
			logging.Error("%-30s ERROR: %v", table, err)
			failed++
			continue
		}
		if !exists {
			logging.Error("%-30s MISSING", table)
			missing++
			continue
		}

		count, err := ins.RowCount(ctx, table)
		if err != nil {
			logging.Error("%-30s ERROR: %v", table, err)
			failed++
			continue
		}

		if !sampled[table] {
			logging.Info("%-30s OK %d rows", table, count)
			continue
		}

		inPartition, err := ins.PartitionRowCount(ctx, table, o.cfg.Partition.Column, o.cfg.Partition.Values)
		if err != nil {
			logging.Warn("%-30s OK %d rows (partition count unavailable: %v)", table, count, err)
			continue
		}
		logging.Info("%-30s OK %d rows (%d in partition set)", table, count, inPartition)
		if count > inPartition {
			logging.Warn("%-30s has %d rows outside the partition set", table, count-inPartition)
		}
	}

	if missing > 0 || failed > 0 {
		return fmt.Errorf("validation failed: %d missing, %d unreadable", missing, failed)
	}
	return nil
}
