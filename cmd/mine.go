package cmd

import (
	"fmt"
	"time"

	"github.com/distillog/distill/internal/config"
	"github.com/distillog/distill/internal/drain"
	"github.com/distillog/distill/internal/extract"
	"github.com/distillog/distill/internal/output"
	"github.com/distillog/distill/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var mineCmd = &cobra.Command{
	Use:   "mine [flags] <file>...",
	Short: "Mine log templates from files",
	Long: `Process log files through the incremental template-mining engine and
print a compression report: the recurring patterns, their frequencies,
and overall statistics.

Input order matters: templates are established by the first line that
reaches a tree leaf, so the same files always produce the same report.

Examples:
  distill mine /var/log/app.log
  distill mine --top 20 --detail /var/log/app.log
  distill mine --since 1h --format json /var/log/*.log
  distill mine --max-clusters 200 --sim-threshold 0.6 app.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMine,
}

func init() {
	mineCmd.Flags().Int("top", 0, "limit output to the N most frequent templates (0 for all)")
	mineCmd.Flags().Bool("detail", false, "include sample values and extracted metadata")
	mineCmd.Flags().String("since", "", "only include logs since timestamp or relative duration (e.g. 1h)")
	mineCmd.Flags().String("until", "", "only include logs until timestamp or relative duration")
	mineCmd.Flags().Bool("abort-on-error", false, "abort on the first unparsable line instead of continuing")

	mineCmd.Flags().Int("depth", 0, "parse tree depth")
	mineCmd.Flags().Float64("sim-threshold", 0, "similarity threshold for template matching")
	mineCmd.Flags().Int("max-children", 0, "maximum children per tree node")
	mineCmd.Flags().Int("max-clusters", 0, "maximum total templates")
	mineCmd.Flags().Int("max-samples", 0, "maximum stored samples per template")

	_ = viper.BindPFlag("drain.depth", mineCmd.Flags().Lookup("depth"))
	_ = viper.BindPFlag("drain.sim_threshold", mineCmd.Flags().Lookup("sim-threshold"))
	_ = viper.BindPFlag("drain.max_children", mineCmd.Flags().Lookup("max-children"))
	_ = viper.BindPFlag("drain.max_clusters", mineCmd.Flags().Lookup("max-clusters"))
	_ = viper.BindPFlag("drain.max_samples", mineCmd.Flags().Lookup("max-samples"))

	rootCmd.AddCommand(mineCmd)
}

func runMine(cmd *cobra.Command, args []string) error {
	topN, _ := cmd.Flags().GetInt("top")
	detail, _ := cmd.Flags().GetBool("detail")
	sinceStr, _ := cmd.Flags().GetString("since")
	untilStr, _ := cmd.Flags().GetString("until")
	abortOnError, _ := cmd.Flags().GetBool("abort-on-error")

	var since, until time.Time
	var err error
	if sinceStr != "" {
		since, err = config.ParseTimeRef(sinceStr)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
	}
	if untilStr != "" {
		until, err = config.ParseTimeRef(untilStr)
		if err != nil {
			return fmt.Errorf("invalid --until value: %w", err)
		}
	}

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	opts := []drain.Option{drain.WithMatchHook(extract.Hook(extract.Default()...))}
	if abortOnError {
		opts = append(opts, drain.WithErrorPolicy(drain.AbortOnError))
	}
	engine, err := engineFromConfig(opts...)
	if err != nil {
		return err
	}

	p := parser.New(viper.GetStringSlice("timestamp_formats"))
	for _, file := range files {
		err := p.ParseFileStream(file, func(entry config.LogEntry) error {
			if !since.IsZero() && !entry.Timestamp.IsZero() && entry.Timestamp.Before(since) {
				return nil
			}
			if !until.IsZero() && !entry.Timestamp.IsZero() && entry.Timestamp.After(until) {
				return nil
			}
			_, err := engine.Ingest(entry.Message)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}

	format := output.ParseFormat(viper.GetString("format"))
	return output.New(cmd.OutOrStdout(), format).WriteReport(engine.Report(), topN, detail)
}
