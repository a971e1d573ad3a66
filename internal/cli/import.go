package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	importPlatform     string
	importConversation string
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import conversation export files",
	Long: `Import conversation export JSON files into the index.

A path may be a single export file or a directory of exports. The
platform adapter is selected with --platform; the conversation id is
taken from the payload when the export carries one.

Examples:
  chattree import conversation.json
  chattree import ./exports --platform chatgpt
  chattree import chat.json --platform claude --conversation 9f3b...`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importPlatform, "platform", "p", "", "source platform (default from config)")
	importCmd.Flags().StringVarP(&importConversation, "conversation", "c", "", "conversation id override (single file only)")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	platform := importPlatform
	if platform == "" {
		if settings, err := st.LoadSettings(); err == nil && settings.DefaultPlatform != "" {
			platform = settings.DefaultPlatform
		}
	}
	if platform == "" {
		platform = cfg.DefaultPlatform
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	if !info.IsDir() {
		return importFile(cmd.Context(), platform, importConversation, path)
	}

	if importConversation != "" {
		return fmt.Errorf("--conversation applies to single-file imports only")
	}

	var files []string
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("scan directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	if len(files) == 0 {
		fmt.Println("No export files found.")
		return nil
	}

	// Interactive terminals get the progress UI; everything else a
	// plain line per file.
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return runImportProgress(cmd.Context(), platform, files)
	}
	for _, file := range files {
		if err := importFile(cmd.Context(), platform, "", file); err != nil {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", filepath.Base(file), err)
		}
	}
	return nil
}

func readExport(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return raw, nil
}

func importFile(ctx context.Context, platform, conversationID, path string) error {
	raw, err := readExport(path)
	if err != nil {
		return err
	}

	result, err := indexer.ImportPayload(ctx, platform, conversationID, raw)
	if err != nil {
		return err
	}

	title := result.Title
	if title == "" {
		title = result.ConversationID
	}
	fmt.Printf("Imported %q: %d messages", title, result.Messages)
	if result.Skipped > 0 {
		fmt.Printf(" (%d skipped)", result.Skipped)
	}
	fmt.Println()
	return nil
}
