package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/synaptiai/agent-capability-standard/pkg/db"
	"github.com/synaptiai/agent-capability-standard/pkg/db/migrations"
	"github.com/synaptiai/agent-capability-standard/pkg/graph"
	"github.com/synaptiai/agent-capability-standard/pkg/hooks"
	"github.com/synaptiai/agent-capability-standard/pkg/profile"
	"github.com/synaptiai/agent-capability-standard/pkg/skills"
)

// hookDiscoveryOpts maps the hook_dirs config key onto discovery options.
// Without the key discovery falls back to the default directory layout.
func hookDiscoveryOpts() []hooks.DiscoveryOption {
	if dirs := viper.GetStringSlice("hook_dirs"); len(dirs) > 0 {
		return []hooks.DiscoveryOption{hooks.WithHookDirs(dirs...)}
	}
	return nil
}

// newHookManager builds the hook manager from config.
func newHookManager() (hooks.Manager, error) {
	return hooks.NewManager(hookDiscoveryOpts()...)
}

// newDiscovery builds skill discovery from config, falling back to the
// default directory layout.
func newDiscovery() (*skills.Discovery, error) {
	if dirs := viper.GetStringSlice("skill_dirs"); len(dirs) > 0 {
		return skills.NewDiscovery(skills.WithSkillDirs(dirs...))
	}
	return skills.NewDiscovery()
}

// activeProfile loads the profile selected by config or flag.
func activeProfile() (*profile.Profile, error) {
	return profile.Select(viper.GetString("profile_dir"), viper.GetString("profile"))
}

// buildGraph discovers skills and assembles the capability graph with the
// active profile's trust overrides applied.
func buildGraph(pol *profile.Profile) (*graph.Graph, []graph.Warning, error) {
	discovery, err := newDiscovery()
	if err != nil {
		return nil, nil, err
	}

	registry, err := discovery.DiscoverSkills()
	if err != nil {
		return nil, nil, errors.Wrap(err, "skill discovery failed")
	}

	return graph.New(registry, graph.WithTrustOverrides(pol.Trust))
}

// openDB opens the shared storage database and applies pending migrations.
func openDB(ctx context.Context) (*sqlx.DB, error) {
	dbPath := viper.GetString("db_path")
	if dbPath == "" {
		var err error
		dbPath, err = db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(sqlDB)
	if err := runner.Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}
