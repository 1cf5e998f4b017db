package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/distillog/distill/internal/config"
	"github.com/distillog/distill/internal/drain"
	"github.com/distillog/distill/internal/extract"
	"github.com/distillog/distill/internal/output"
	"github.com/distillog/distill/internal/tail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tailCmd = &cobra.Command{
	Use:   "tail [flags] <file>",
	Short: "Live-tail a log file, mining templates as lines arrive",
	Long: `Watch a log file in real-time and feed every new line through the
template-mining engine. Each line prints the template it was absorbed
into; a leading '+' marks a newly created template. On interrupt, the
final compression report is printed.

Examples:
  distill tail /var/log/app.log
  distill tail --level error /var/log/app.log
  distill tail --pattern "request_id=abc" --follow-rotate app.log`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringP("pattern", "p", "", "only mine lines matching regex pattern")
	tailCmd.Flags().StringP("level", "l", "", "minimum log level to mine (debug, info, warn, error, fatal)")
	tailCmd.Flags().IntP("lines", "n", 10, "number of initial lines to mine")
	tailCmd.Flags().Bool("no-follow", false, "mine last N lines and exit (don't follow)")
	tailCmd.Flags().Bool("follow-rotate", false, "follow through log rotations")
	tailCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	levelStr, _ := cmd.Flags().GetString("level")
	lines, _ := cmd.Flags().GetInt("lines")
	noFollow, _ := cmd.Flags().GetBool("no-follow")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	noColor, _ := cmd.Flags().GetBool("no-color")
	patternStr, _ := cmd.Flags().GetString("pattern")

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	var pattern *regexp.Regexp
	var err error
	if patternStr != "" {
		pattern, err = regexp.Compile(patternStr)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	levelFilter := config.LevelUnknown
	if levelStr != "" {
		levelFilter = config.ParseLevel(levelStr)
		if levelFilter == config.LevelUnknown {
			return fmt.Errorf("invalid level: %s", levelStr)
		}
	}

	colorMode := output.ColorAuto
	if noColor {
		colorMode = output.ColorNever
	}

	engine, err := engineFromConfig(drain.WithMatchHook(extract.Hook(extract.Default()...)))
	if err != nil {
		return err
	}

	writer := output.New(os.Stdout, output.FormatText).WithColor(colorMode)
	outputFunc := func(entry config.LogEntry) error {
		c, err := engine.Ingest(entry.Message)
		if err != nil {
			return err
		}
		return writer.WriteMatch(c, c.Occurrences == 1)
	}

	tailer := tail.New(tail.Options{
		FilePath:     filePath,
		Lines:        lines,
		Follow:       !noFollow,
		FollowRotate: followRotate,
		Pattern:      pattern,
		LevelFilter:  levelFilter,
		OutputFunc:   outputFunc,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- tailer.Run(ctx)
	}()

	var runErr error
	select {
	case <-sigChan:
		cancel()
		<-errChan
	case runErr = <-errChan:
		if errors.Is(runErr, tail.ErrRotated) {
			runErr = nil
		}
	}

	// Final report for whatever was mined, even on early exit.
	if engine.Lines() > 0 {
		fmt.Fprintln(os.Stdout)
		format := output.ParseFormat(viper.GetString("format"))
		if err := output.New(os.Stdout, format).WriteReport(engine.Report(), 0, false); err != nil {
			return err
		}
	}

	return runErr
}
