package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/config"
	"github.com/aki/parley/internal/core/logger"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize parley in the current directory",
	Long:  "Create .parley/config.yaml with default timeouts and the transcript directory",
	RunE:  runInit,
}

var (
	forceInit     bool
	initGitignore bool
)

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Force initialization, overwriting existing configuration")
	initCmd.Flags().BoolVar(&initGitignore, "gitignore", false, "Add .parley/ to .gitignore")
}

func runInit(cmd *cobra.Command, args []string) error {
	projectRoot := flagRootDir
	if projectRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		projectRoot = cwd
	}

	configManager := config.NewManager(projectRoot)
	if configManager.IsInitialized() && !forceInit {
		return fmt.Errorf("parley already initialized. Use --force to reinitialize")
	}

	cfg := config.DefaultConfig()
	logger.FromContext(cmd.Context()).Debug("writing default configuration", "path", configManager.GetConfigPath())
	if err := configManager.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	if err := os.MkdirAll(configManager.GetTranscriptDir(cfg), 0o755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	if initGitignore && shouldUpdateGitignore(projectRoot) {
		if err := addToGitignore(projectRoot); err != nil {
			p.Warning("Failed to update .gitignore: %v", err)
		} else {
			p.Line("Added .parley/ to .gitignore")
		}
	}

	p.Success("parley initialized in %s", projectRoot)
	p.Line("  Configuration: %s", filepath.Join(config.ParleyDir, config.ConfigFile))
	p.Line("\nRun 'parley chat' for a scripted conversation or 'parley serve' to connect an agent")

	return nil
}

func shouldUpdateGitignore(projectRoot string) bool {
	data, err := os.ReadFile(filepath.Join(projectRoot, ".gitignore"))
	if err != nil {
		return true
	}
	return !strings.Contains(string(data), config.ParleyDir)
}

func addToGitignore(projectRoot string) (err error) {
	file, err := os.OpenFile(filepath.Join(projectRoot, ".gitignore"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = file.WriteString("\n# parley\n" + config.ParleyDir + "/\n")
	return err
}
