package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"multisource/internal/camera"
	"multisource/internal/config"
	"multisource/internal/logging"
	"multisource/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources [feed...]",
	Short: "画像ソースを1回解決して結果を表示する",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		feeds, err := selectFeeds(cfg, args)
		if err != nil {
			return err
		}

		resolver := newResolver(cfg, logging.New(cmd.ErrOrStderr()))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FEED\tDESCRIPTOR\tKIND\tIMAGES\tBYTES\tSKIPPED")
		fmt.Fprintln(w, "────\t──────────\t────\t──────\t─────\t───────")

		var errs []error
		for _, fc := range feeds {
			result, err := resolver.Resolve(cmd.Context(), source.Descriptors(fc.Images...))
			if err != nil {
				fmt.Fprintf(w, "%s\t-\t-\t0\t0\t%v\n", fc.Name, err)
				errs = append(errs, fmt.Errorf("フィード %s: %w", fc.Name, err))
				continue
			}
			for _, report := range result.Sources {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					fc.Name, report.Descriptor, report.Kind, report.Payloads, report.Bytes, report.Skipped())
			}
		}

		if err := w.Flush(); err != nil {
			return err
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// selectFeeds は名前で指定されたフィードを返す。指定がなければ全フィード
func selectFeeds(cfg *config.Config, names []string) ([]config.FeedConfig, error) {
	if len(names) == 0 {
		return cfg.Feeds, nil
	}

	selected := make([]config.FeedConfig, 0, len(names))
	for _, name := range names {
		found := false
		for _, fc := range cfg.Feeds {
			if fc.Name == name {
				selected = append(selected, fc)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", camera.ErrFeedNotFound, name)
		}
	}
	return selected, nil
}
