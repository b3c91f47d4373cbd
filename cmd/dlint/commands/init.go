package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/divergence-lint/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize dlint configuration interactively",
	Long: `Guides you through setting up dlint's configuration step by step:
whether diagnostics print friendly type names, whether Image-class
loads count as divergent, and the default output format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	cfg := config.DefaultConfig()

	var outputChoice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Friendly type names").
				Description("Render diagnostics with friendly names (%uint32, %_ptr_Input_float) instead of raw IDs?").
				Affirmative("Yes, friendly names").
				Negative("No, raw IDs").
				Value(&cfg.FriendlyNames),
			huh.NewConfirm().
				Title("Image loads").
				Description("Treat loads from Image storage class as divergent?").
				Affirmative("Yes, divergent").
				Negative("No, uniform").
				Value(&cfg.ImageLoadsDivergent),
			huh.NewSelect[string]().
				Title("Default output format").
				Description("Used by cdg and divergence when --format is not given").
				Options(
					huh.NewOption("Text", string(config.OutputText)),
					huh.NewOption("JSON", string(config.OutputJSON)),
					huh.NewOption("Msgpack", string(config.OutputMsgpack)),
				).
				Value(&outputChoice),
			huh.NewConfirm().
				Title("Verbose logging").
				Description("Trace internal analysis progress on stderr by default?").
				Affirmative("Yes").
				Negative("No").
				Value(&cfg.Verbose),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	cfg.OutputFormat = config.OutputFormat(outputChoice)

	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Global (~/.dlint/config.yaml)", "global"),
					huh.NewOption("Project (./.dlint.yaml)", "project"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	var configPath string
	if saveLocationChoice == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		configPath = filepath.Join(home, ".dlint", "config.yaml")
	} else {
		configPath = ".dlint.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Friendly names: %v\n", cfg.FriendlyNames)
	fmt.Printf("Image loads divergent: %v\n", cfg.ImageLoadsDivergent)
	fmt.Printf("Output format: %s\n", cfg.OutputFormat)
	fmt.Printf("Verbose: %v\n", cfg.Verbose)
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)
	return nil
}
