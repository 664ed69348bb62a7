package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/t3clone/t3chat/internal/version"
)

// Schema files live at migration/{driver}/LATEST.sql (fresh installs) and
// migration/{driver}/{minor}/NN__description.sql (upgrades). The applied schema
// version is recorded in system_setting under SystemSettingSchemaVersionName.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit separates the patch number from the description, e.g. "1__add_column.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the full schema applied to an empty database.
	LatestSchemaFileName = "LATEST.sql"

	defaultSchemaVersion = "0.0.0"

	modeProd = "prod"
)

// Migrate brings the database schema to the version of the running binary.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}
	if s.profile.Mode != modeProd {
		return nil
	}

	setting, err := s.driver.GetSystemSetting(ctx, SystemSettingSchemaVersionName)
	if err != nil {
		return errors.Wrap(err, "failed to get schema version")
	}
	dbVersion := defaultSchemaVersion
	if setting != nil && setting.Value != "" {
		dbVersion = setting.Value
	}
	currentVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	if version.IsVersionGreaterThan(dbVersion, currentVersion) {
		slog.Error("cannot downgrade schema version",
			slog.String("databaseVersion", dbVersion),
			slog.String("currentVersion", currentVersion),
		)
		return errors.Errorf("cannot downgrade schema version from %s to %s", dbVersion, currentVersion)
	}
	if version.IsVersionGreaterThan(currentVersion, dbVersion) {
		if err := s.applyMigrations(ctx, dbVersion, currentVersion); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
	}
	return nil
}

// preMigrate applies LATEST.sql when the database has no schema yet.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %s", filePath)
	}
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := execute(ctx, tx, string(bytes)); err != nil {
		return errors.Wrapf(err, "failed to execute SQL file %s", filePath)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	schemaVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	if _, err := s.driver.UpsertSystemSetting(ctx, &SystemSetting{Name: SystemSettingSchemaVersionName, Value: schemaVersion}); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	slog.Info("database initialized successfully", slog.String("schemaVersion", schemaVersion))
	return nil
}

// applyMigrations runs every migration file newer than current and not newer than target in one transaction.
func (s *Store) applyMigrations(ctx context.Context, current, target string) error {
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s*/*.sql", s.getMigrationBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("start migration", slog.String("currentSchemaVersion", current), slog.String("targetSchemaVersion", target))
	applied := 0
	for _, filePath := range filePaths {
		fileVersion, err := schemaVersionOfMigrateScript(filePath)
		if err != nil {
			return err
		}
		if !version.IsVersionGreaterThan(fileVersion, current) || version.IsVersionGreaterThan(fileVersion, target) {
			continue
		}
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration %s", filePath)
		}
		if err := execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		applied++
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", applied))

	if _, err := s.driver.UpsertSystemSetting(ctx, &SystemSetting{Name: SystemSettingSchemaVersionName, Value: target}); err != nil {
		return errors.Wrap(err, "failed to update current schema version")
	}
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

// GetCurrentSchemaVersion derives the schema version from the newest migration of the running minor version.
func (s *Store) GetCurrentSchemaVersion() (string, error) {
	minorVersion := version.GetMinorVersion(version.GetCurrentVersion(s.profile.Mode))
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s%s/*.sql", s.getMigrationBasePath(), minorVersion))
	if err != nil {
		return "", errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)
	if len(filePaths) == 0 {
		return fmt.Sprintf("%s.0", minorVersion), nil
	}
	return schemaVersionOfMigrateScript(filePaths[len(filePaths)-1])
}

// schemaVersionOfMigrateScript maps "migration/postgres/0.3/02__x.sql" to "0.3.3".
func schemaVersionOfMigrateScript(filePath string) (string, error) {
	elements := strings.Split(filepath.ToSlash(filePath), "/")
	if len(elements) < 2 {
		return "", errors.Errorf("invalid file path: %s", filePath)
	}
	minorVersion := elements[len(elements)-2]
	rawPatch, _, found := strings.Cut(elements[len(elements)-1], MigrateFileNameSplit)
	if !found {
		return "", errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filePath)
	}
	patch, err := strconv.Atoi(rawPatch)
	if err != nil {
		return "", errors.Wrapf(err, "failed to convert patch version to int: %s", rawPatch)
	}
	return fmt.Sprintf("%s.%d", minorVersion, patch+1), nil
}

// execute runs a multi-statement script one statement at a time, as lib/pq requires.
func execute(ctx context.Context, tx *sql.Tx, script string) error {
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits on semicolons that end a line, dropping "--" comment lines.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
