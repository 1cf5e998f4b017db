package cmd

import (
	"fmt"
	"os"

	"github.com/distillog/distill/internal/drain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Mine recurring templates out of log files",
	Long: `Distill compresses large volumes of semi-structured log lines into
recurring templates: variable substrings become wildcards, so many
near-identical lines collapse into one representative pattern.

The output is suitable for human review or for feeding into
token-limited downstream consumers.

Examples:
  distill mine /var/log/app.log
  distill mine --top 20 --format table /var/log/*.log
  distill tail --level warn /var/log/app.log`,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.distill.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".distill")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DISTILL")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("timestamp_formats", []string{
		"2006-01-02T15:04:05Z07:00",  // RFC3339
		"2006-01-02 15:04:05",        // Common datetime
		"Jan 02 15:04:05",            // Syslog
		"02/Jan/2006:15:04:05 -0700", // Apache/Nginx
	})
	viper.SetDefault("drain.depth", drain.DefaultDepth)
	viper.SetDefault("drain.sim_threshold", drain.DefaultSimThreshold)
	viper.SetDefault("drain.max_children", drain.DefaultMaxChildren)
	viper.SetDefault("drain.max_clusters", drain.DefaultMaxClusters)
	viper.SetDefault("drain.max_samples", drain.DefaultMaxSamples)
	viper.SetDefault("drain.masks", drain.DefaultMasks())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// engineFromConfig builds a drain engine from the resolved configuration,
// applying any extra options after the configured strategy.
func engineFromConfig(opts ...drain.Option) (*drain.Engine, error) {
	cfg := drain.Config{
		Depth:       viper.GetInt("drain.depth"),
		MaxChildren: viper.GetInt("drain.max_children"),
		MaxClusters: viper.GetInt("drain.max_clusters"),
		MaxSamples:  viper.GetInt("drain.max_samples"),
	}

	strategy := drain.NewMaskingStrategy(
		viper.GetFloat64("drain.sim_threshold"),
		viper.GetStringSlice("drain.masks"),
	)

	all := append([]drain.Option{drain.WithStrategy(strategy)}, opts...)
	return drain.New(cfg, all...)
}
