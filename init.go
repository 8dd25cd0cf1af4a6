package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/headerdoc/internal/config"
)

const (
	sentinelStart = "# headerdoc:start"
	sentinelEnd   = "# headerdoc:end"
)

// newInitCmd implements `headerdoc init`, which writes (or updates) the
// default settings in a .headerdoc.yaml file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration to " + config.FileName,
		Long: `Write the default headerdoc settings to a config file. The settings are
wrapped in sentinel comments so they can be updated in place on subsequent runs
without touching surrounding content. Creates the file if it does not exist.

path defaults to ./` + config.FileName + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, err := generateSection()
			if err != nil {
				return err
			}

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(stdout, section)
				return nil
			}

			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}

			existing, err := os.ReadFile(path)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(stderr, "wrote headerdoc settings to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection returns the sentinel-wrapped default configuration.
func generateSection() (string, error) {
	body, err := config.Default().YAML()
	if err != nil {
		return "", err
	}
	header := `# Settings for headerdoc. Every key can be overridden with a HEADERDOC_*
# environment variable, e.g. HEADERDOC_PARSE_RECOVER=true.
`
	return sentinelStart + "\n" + header + strings.TrimRight(string(body), "\n") + "\n" + sentinelEnd, nil
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content == "" {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
