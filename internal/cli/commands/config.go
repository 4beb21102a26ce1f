package commands

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/aki/parley/internal/cli/ui"
	"github.com/aki/parley/internal/core/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage parley configuration",
}

var (
	showFormat     string
	validateVerbose bool
)

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Example: `  # Show configuration in YAML format (default)
  parley config show

  # Show configuration in JSON format
  parley config show --format json`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file against the schema",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in your editor",
	Long:  "Launch your editor on .parley/config.yaml. The configuration is validated after editing.",
	Example: `  # Edit with a specific editor
  EDITOR=nano parley config edit`,
	RunE: runConfigEdit,
}

func init() {
	configShowCmd.Flags().StringVar(&showFormat, "format", "yaml", "Output format (yaml, json, pretty)")
	configValidateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "Print the effective configuration after validation")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configEditCmd)
}

func loadProjectConfig() (*config.Manager, *config.Config, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, nil, err
	}

	mgr := config.NewManager(projectRoot)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return mgr, cfg, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}

	f, err := newFormatter(cmd, showFormat)
	if err != nil {
		return err
	}
	return f.Output(cfg, func(p *ui.Printer) { showConfigPretty(p, cfg) })
}

func showConfigPretty(p *ui.Printer, cfg *config.Config) {
	p.Line("Conversation:")
	p.Line("  Manual wait timeout: %s", cfg.Conversation.ManualWaitTimeout)
	p.Line("  Reply timeout:       %s", cfg.Conversation.ReplyTimeout)
	p.Line("  Reply attempts:      %d", cfg.Conversation.ReplyAttempts)
	if cfg.Conversation.HistoryLimit > 0 {
		p.Line("  History limit:       %d", cfg.Conversation.HistoryLimit)
	} else {
		p.Line("  History limit:       unlimited")
	}

	p.Line("\nLogging:")
	p.Line("  Level:  %s", cfg.Logging.Level)
	p.Line("  Format: %s", cfg.Logging.Format)
	p.Line("  File:   %s", cfg.Logging.File)

	p.Line("\nTranscripts:")
	if cfg.Transcript.Disabled {
		p.Line("  Disabled")
	} else {
		p.Line("  Dir: %s", cfg.Transcript.Dir)
	}

	p.Line("\nMCP:")
	p.Line("  Port: %d", cfg.MCP.HTTP.Port)
	if cfg.MCP.HTTP.Auth.Bearer != "" {
		p.Line("  Auth: bearer token")
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		projectRoot, err := findProjectRoot()
		if err != nil {
			return err
		}
		path = config.NewManager(projectRoot).GetConfigPath()
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.LoadWithValidation(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("configuration file not found: %s", path)
		}
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	p.Success("Configuration is valid: %s", path)
	if validateVerbose {
		p.Line("")
		showConfigPretty(p, cfg)
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return err
	}

	mgr := config.NewManager(projectRoot)
	p := ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	if !mgr.IsInitialized() {
		p.Line("Configuration file not found. Creating default configuration...")
		if err := mgr.Save(config.DefaultConfig()); err != nil {
			return fmt.Errorf("failed to create default configuration: %w", err)
		}
	}

	editor := findEditor()
	if editor == "" {
		return fmt.Errorf("no editor found. Please set the EDITOR environment variable")
	}

	p.Line("Opening configuration in %s...", editor)

	editorCmd := exec.Command(editor, mgr.GetConfigPath())
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	if _, err := config.LoadWithValidation(mgr.GetConfigPath()); err != nil {
		p.Error("Configuration validation failed: %v", err)
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	p.Success("Configuration is valid!")
	return nil
}

// findEditor checks EDITOR, then VISUAL, then common editors for the OS
func findEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}

	var editors []string
	switch runtime.GOOS {
	case "darwin":
		editors = []string{"code", "subl", "vim", "nano", "vi"}
	case "windows":
		editors = []string{"notepad"}
	default:
		editors = []string{"vim", "nano", "vi"}
	}

	for _, editor := range editors {
		if _, err := exec.LookPath(editor); err == nil {
			return editor
		}
	}
	return ""
}
