package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/untoldecay/InstructionLog/internal/config"
	"github.com/untoldecay/InstructionLog/internal/storage/sqlite"
	"github.com/untoldecay/InstructionLog/internal/ui"
)

var initCmd = &cobra.Command{
	Use:         "init",
	GroupID:     "setup",
	Short:       "Create .instructions/ with a config file and database",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dataDir := filepath.Join(cwd, config.DataDirName)
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dataDir, err)
		}

		configPath := filepath.Join(dataDir, "config.yaml")
		written, err := writeDefaultConfig(configPath)
		if err != nil {
			return err
		}

		path := dbPath
		if path == "" {
			path = filepath.Join(dataDir, config.DefaultDBName)
		}
		s, err := sqlite.New(cmd.Context(), path)
		if err != nil {
			return err
		}
		if err := s.Close(); err != nil {
			return err
		}

		var migrations []string
		for _, m := range sqlite.ListMigrations() {
			migrations = append(migrations, m.Name)
		}
		res := ui.InitResult{
			DataDir:       dataDir,
			DBPath:        path,
			ConfigPath:    configPath,
			ConfigWritten: written,
			Migrations:    migrations,
			QuickstartCommands: []string{
				`il create my-first --title "My first instruction" --content "..."`,
				"il list",
			},
		}
		return render(cmd, res, func() string {
			return ui.RenderInitReport(res, tableWidth())
		})
	},
}

// writeDefaultConfig writes a starter config.yaml unless one exists.
func writeDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	doc := map[string]interface{}{
		"versions": map[string]interface{}{
			"keep":           config.GetInt("versions.keep"),
			"max-major":      config.GetInt("versions.max-major"),
			"major-overflow": config.GetString("versions.major-overflow"),
		},
		"cache": map[string]interface{}{
			"enabled": config.GetBool("cache.enabled"),
			"ttl":     config.GetDuration("cache.ttl").String(),
		},
		"log": map[string]interface{}{
			"level": config.GetString("log.level"),
		},
	}
	var buf bytes.Buffer
	buf.WriteString("# il configuration. Environment variables IL_<KEY> override these values.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return false, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
