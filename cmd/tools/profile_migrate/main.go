// profile_migrate upgrades stored style profile documents to the current
// schema version.
//
// Usage:
//
//	profile_migrate -in ./export -out ./upgraded
//	profile_migrate -in ./export -import -config config.yaml
//
// Each input file is named <student_id>.json. With -import the upgraded
// profiles are written to the configured store; existing profiles are left
// alone unless -overwrite is set.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tonetrace/tonetrace/internal/analytics/profile"
	"github.com/tonetrace/tonetrace/internal/config"
	"github.com/tonetrace/tonetrace/internal/logging"
	"github.com/tonetrace/tonetrace/internal/store"
)

// summary counts migration outcomes
type summary struct {
	Current  int
	Upgraded int
	Skipped  int
	Failed   int
}

type migrator struct {
	logger    *logging.Logger
	outDir    string
	profiles  store.ProfileStore
	overwrite bool
	dryRun    bool
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (used with -import)")
	inDir := flag.String("in", "", "Directory of <student_id>.json profile documents")
	outDir := flag.String("out", "", "Directory to write upgraded documents to")
	importFlag := flag.Bool("import", false, "Save upgraded profiles to the configured store")
	overwrite := flag.Bool("overwrite", false, "Replace profiles that already exist in the store")
	dryRun := flag.Bool("dry-run", false, "Report what would change without writing")
	flag.Parse()

	if *inDir == "" || (*outDir == "" && !*importFlag && !*dryRun) {
		fmt.Fprintln(os.Stderr, "Usage: profile_migrate -in <dir> [-out <dir>] [-import [-overwrite]] [-dry-run]")
		os.Exit(2)
	}

	logger := logging.NewDevelopment()
	m := &migrator{logger: logger, outDir: *outDir, overwrite: *overwrite, dryRun: *dryRun}

	ctx := context.Background()
	if *importFlag {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("Failed to load config", "error", err)
		}
		profiles, err := store.New(ctx, cfg.Store, logger)
		if err != nil {
			logger.Fatal("Failed to open profile store", "type", cfg.Store.Type, "error", err)
		}
		defer func() { _ = profiles.Close() }()
		m.profiles = profiles
	}

	if m.outDir != "" && !m.dryRun {
		if err := os.MkdirAll(m.outDir, 0o755); err != nil {
			logger.Fatal("Failed to create output directory", "dir", m.outDir, "error", err)
		}
	}

	s, err := m.run(ctx, *inDir)
	if err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	logger.Info("Migration finished",
		"current", s.Current,
		"upgraded", s.Upgraded,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"dry_run", m.dryRun)
	if s.Failed > 0 {
		os.Exit(1)
	}
}

// run migrates every .json file in dir in name order
func (m *migrator) run(ctx context.Context, dir string) (summary, error) {
	var s summary
	entries, err := os.ReadDir(dir)
	if err != nil {
		return s, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		studentID := strings.TrimSuffix(name, ".json")
		upgraded, stored, err := m.migrateFile(ctx, studentID, filepath.Join(dir, name))
		switch {
		case err != nil:
			s.Failed++
			m.logger.Error("Failed to migrate profile", "student_id", studentID, "error", err)
		case !stored:
			s.Skipped++
		case upgraded:
			s.Upgraded++
		default:
			s.Current++
		}
	}
	return s, nil
}

// migrateFile reports whether the document needed an upgrade and whether it
// was written anywhere.
func (m *migrator) migrateFile(ctx context.Context, studentID, path string) (upgraded, stored bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, false, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return false, false, fmt.Errorf("%w: %v", profile.ErrInvalidDocument, err)
	}
	version, err := profile.DocumentVersion(raw)
	if err != nil {
		return false, false, err
	}
	p, err := profile.Unmarshal(data)
	if err != nil {
		return false, false, err
	}
	upgraded = version < profile.SchemaVersion

	m.logger.Debug("Decoded profile",
		"student_id", studentID,
		"from_version", version,
		"total_texts", p.TotalTexts)

	if m.dryRun {
		return upgraded, true, nil
	}

	if m.outDir != "" {
		out, err := profile.Marshal(p)
		if err != nil {
			return upgraded, false, err
		}
		if err := os.WriteFile(filepath.Join(m.outDir, studentID+".json"), out, 0o644); err != nil {
			return upgraded, false, err
		}
		stored = true
	}

	if m.profiles != nil {
		saved, err := m.save(ctx, studentID, p)
		if err != nil {
			return upgraded, stored, err
		}
		stored = stored || saved
	}
	return upgraded, stored, nil
}

func (m *migrator) save(ctx context.Context, studentID string, p *profile.StyleProfile) (bool, error) {
	_, err := m.profiles.Save(ctx, studentID, p, 0)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, store.ErrRevisionConflict) {
		return false, err
	}
	if !m.overwrite {
		m.logger.Info("Profile already stored, skipping", "student_id", studentID)
		return false, nil
	}

	snap, err := m.profiles.Get(ctx, studentID)
	if err != nil {
		return false, err
	}
	if _, err := m.profiles.Save(ctx, studentID, p, snap.Revision); err != nil {
		return false, err
	}
	return true, nil
}
