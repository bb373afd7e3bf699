package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

const envPrefix = "APP_PLANE"

// Viper keys for CLI-only settings. Gateway settings use the snake case
// form of the APP_PLANE_* variable names, see viperEnvironment.
const (
	keyConfig       = "config"
	keyOutput       = "output"
	keyVerbose      = "verbose"
	keyPassportFile = "passport_file"
	keyNATSURL      = "nats_url"
	keyCacheTTL     = "cache_ttl"
)

// VersionInfo describes the build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

// cli carries state shared by every command of one invocation.
type cli struct {
	viper *viper.Viper
	info  VersionInfo
}

// NewRootCommand creates the appplane command tree.
func NewRootCommand(info VersionInfo) *cobra.Command {
	c := &cli{viper: viper.New(), info: info}

	rootCmd := &cobra.Command{
		Use:   "appplane",
		Short: "App plane gateway CLI",
		Long: `A command-line interface for calling the app plane gateway.

Paths are placed under the gateway's /app prefix. Settings come from flags,
then APP_PLANE_* environment variables, then $HOME/.appplane/config.yml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.appplane/config.yml)")
	flags.String("base-url", "", "gateway base URL")
	flags.StringP("token", "t", "", "bearer token")
	flags.Bool("ask-token", false, "prompt for the bearer token")
	flags.String("passport-file", "", "file holding the app passport, re-read when it changes")
	flags.StringP("output", "o", constants.FormatJSON, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "log requests to stderr")
	flags.Bool("allow-insecure-http", false, "allow an http:// base URL")
	flags.Duration("timeout", 0, "per-attempt timeout")
	flags.Int("max-retries", 0, "retries for calls that got no response")
	flags.Duration("retry-backoff", 0, "delay between retries")
	flags.String("nats-url", "", "cache GET responses in a NATS key-value bucket on this server")
	flags.Duration("cache-ttl", 0, "how long cached GET responses stay fresh")

	_ = c.viper.BindPFlag(keyConfig, flags.Lookup("config"))
	_ = c.viper.BindPFlag(keyOutput, flags.Lookup("output"))
	_ = c.viper.BindPFlag(keyVerbose, flags.Lookup("verbose"))
	_ = c.viper.BindPFlag(keyPassportFile, flags.Lookup("passport-file"))
	_ = c.viper.BindPFlag(keyNATSURL, flags.Lookup("nats-url"))
	_ = c.viper.BindPFlag(keyCacheTTL, flags.Lookup("cache-ttl"))

	rootCmd.AddCommand(c.newVersionCommand())
	rootCmd.AddCommand(c.newConfigCommand())
	rootCmd.AddCommand(c.newRequestCommand())
	rootCmd.AddCommand(c.newListCommand())

	for _, method := range []string{"get", "post", "put", "patch", "delete"} {
		rootCmd.AddCommand(c.newMethodCommand(method))
	}

	return rootCmd
}

func (c *cli) initConfig() error {
	v := c.viper

	cfgFile := v.GetString(keyConfig)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".appplane"))
		}

		v.SetConfigType("yml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	return validateFormat(c.output())
}

func (c *cli) output() string {
	return strings.ToLower(c.viper.GetString(keyOutput))
}

func validateFormat(format string) error {
	switch format {
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, format)
	}
}
