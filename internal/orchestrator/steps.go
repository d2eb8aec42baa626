package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wrgoldstein/copypg/internal/runner"
	"github.com/wrgoldstein/copypg/internal/schema"
)

// sentinel pads the partition key list so the generated IN predicate is
// never a single-element list the server-side tooling could misparse.
const sentinel = "-hack-"

func (o *Orchestrator) rawSchemaPath() string {
	return filepath.Join(o.rawDir(), "prod.schema.sql")
}

func (o *Orchestrator) processedSchemaPath() string {
	return filepath.Join(o.processedDir(), "prod.schema.sql")
}

func (o *Orchestrator) rawDataPath() string {
	return filepath.Join(o.rawDir(), "prod.data.sql")
}

// sampleCSVPath names the per-table handoff file. The fraction is part of
// the name so the load step picks up the file the download step wrote.
func (o *Orchestrator) sampleCSVPath(table string, fraction float64) string {
	return filepath.Join(o.rawDir(), fmt.Sprintf("%s_%s.csv", table, formatFraction(fraction)))
}

func formatFraction(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// predicateList renders the partition key values as a SQL IN list, always
// padded with the sentinel so it has at least two elements.
func predicateList(values []string) string {
	padded := append([]string{sentinel}, values...)
	quoted := make([]string, len(padded))
	for i, v := range padded {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func (o *Orchestrator) recreateDatabase(ctx context.Context) error {
	_ = o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.DropDB, o.cfg.Target.Database)
	return o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.CreateDB, o.cfg.Target.Database)
}

func (o *Orchestrator) downloadSchema(ctx context.Context) error {
	args := []string{o.cfg.Source.DSN, "-s"}
	for _, table := range o.cfg.AllTables() {
		args = append(args, "-t", table)
	}
	args = append(args, "-f", o.rawSchemaPath())
	return o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.PgDump, args...)
}

func (o *Orchestrator) processSchema(_ context.Context) error {
	return schema.ProcessFile(o.rawSchemaPath(), o.processedSchemaPath(), o.cfg.Alterations)
}

// dropTables clears every table up front so constraint ordering in the
// dump cannot block recreation.
func (o *Orchestrator) dropTables(ctx context.Context) error {
	for _, table := range o.cfg.AllTables() {
		_ = o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.Psql, o.cfg.Target.Database,
			"-c", fmt.Sprintf("drop table if exists %s cascade", table))
	}
	return nil
}

func (o *Orchestrator) createTables(ctx context.Context) error {
	return o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.Psql, o.cfg.Target.Database,
		"-f", o.processedSchemaPath())
}

func (o *Orchestrator) downloadDataForSmallTables(ctx context.Context) error {
	if len(o.cfg.Tables.FullCopy) == 0 {
		return nil
	}
	args := []string{o.cfg.Source.DSN, "-a"}
	for _, table := range o.cfg.Tables.FullCopy {
		args = append(args, "-t", table)
	}
	args = append(args, "-f", o.rawDataPath())
	return o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.PgDump, args...)
}

func (o *Orchestrator) downloadSampleOfDataForLargeTables(ctx context.Context) error {
	for _, table := range o.cfg.SampledTables() {
		fraction := o.cfg.Tables.Sampled[table]
		_ = o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.Psql, o.cfg.Source.DSN,
			"-c", o.sampleCopySQL(table, fraction))
	}
	return nil
}

// downloadShopSpecificDataForLargeTables pulls every row for the partition
// key set, with no sampling applied.
func (o *Orchestrator) downloadShopSpecificDataForLargeTables(ctx context.Context) error {
	for _, table := range o.cfg.SampledTables() {
		fraction := o.cfg.Tables.Sampled[table]
		_ = o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.Psql, o.cfg.Source.DSN,
			"-c", o.shopCopySQL(table, fraction))
	}
	return nil
}

func (o *Orchestrator) sampleCopySQL(table string, fraction float64) string {
	return fmt.Sprintf(
		`\copy (select * from %s tablesample system (%s) where %s in %s) to '%s' with header csv`,
		table, formatFraction(fraction), o.cfg.Partition.Column,
		predicateList(o.cfg.Partition.Values), o.sampleCSVPath(table, fraction))
}

func (o *Orchestrator) shopCopySQL(table string, fraction float64) string {
	return fmt.Sprintf(
		`\copy (select * from %s where %s in %s) to '%s' with header csv`,
		table, o.cfg.Partition.Column,
		predicateList(o.cfg.Partition.Values), o.sampleCSVPath(table, fraction))
}

func (o *Orchestrator) loadDataForSmallTables(ctx context.Context) error {
	if len(o.cfg.Tables.FullCopy) == 0 {
		return nil
	}
	return o.run.Run(ctx, runner.PropagateFailure, o.cfg.Tools.Psql, o.cfg.Target.Database,
		"-f", o.rawDataPath())
}

func (o *Orchestrator) loadDataForLargeTables(ctx context.Context) error {
	var firstErr error
	for _, table := range o.cfg.SampledTables() {
		fraction := o.cfg.Tables.Sampled[table]
		cmd := fmt.Sprintf(`\copy %s from '%s' with csv header`, table, o.sampleCSVPath(table, fraction))
		err := o.run.Run(ctx, runner.PropagateFailure, o.cfg.Tools.Psql, o.cfg.Target.Database, "-c", cmd)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("loading %s: %w", table, err)
		}
	}
	return firstErr
}

// truncateLargeTables empties the sampled tables so a partition refresh
// never duplicates rows.
func (o *Orchestrator) truncateLargeTables(ctx context.Context) error {
	for _, table := range o.cfg.SampledTables() {
		_ = o.run.Run(ctx, runner.IgnoreFailure, o.cfg.Tools.Psql, o.cfg.Target.Database,
			"-c", fmt.Sprintf("truncate %s", table))
	}
	return nil
}
