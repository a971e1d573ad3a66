package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var (
	settingsPlatform string
	settingsExpanded bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show persisted settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update persisted settings",
	Long: `Update settings persisted between sessions.

Example:
  chattree settings set --platform claude --expanded`,
	RunE: runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().StringVar(&settingsPlatform, "platform", "", "default import platform")
	settingsSetCmd.Flags().BoolVar(&settingsExpanded, "expanded", false, "render trees with branches expanded")
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	settings, err := st.LoadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	platform := settings.DefaultPlatform
	if platform == "" {
		platform = cfg.DefaultPlatform + " (config default)"
	}
	fmt.Printf("Default platform: %s\n", platform)
	fmt.Printf("Tree expanded:    %t\n", settings.TreeExpanded)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	settings, err := st.LoadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if cmd.Flags().Changed("platform") {
		if !slices.Contains(indexer.Platforms(), settingsPlatform) {
			return fmt.Errorf("unknown platform %q (supported: %v)", settingsPlatform, indexer.Platforms())
		}
		settings.DefaultPlatform = settingsPlatform
	}
	if cmd.Flags().Changed("expanded") {
		settings.TreeExpanded = settingsExpanded
	}

	if err := st.SaveSettings(settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	fmt.Println("Settings saved.")
	return nil
}
