package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

// shownConfig is the printable form of the effective settings. Tokens are
// masked.
type shownConfig struct {
	BaseURL           string `json:"base_url"            yaml:"base_url"`
	AuthToken         string `json:"auth_token"          yaml:"auth_token"`
	Passport          string `json:"passport"            yaml:"passport"`
	PassportFile      string `json:"passport_file"       yaml:"passport_file"`
	Timeout           string `json:"timeout"             yaml:"timeout"`
	ConnectTimeout    string `json:"connect_timeout"     yaml:"connect_timeout"`
	ReadTimeout       string `json:"read_timeout"        yaml:"read_timeout"`
	WriteTimeout      string `json:"write_timeout"       yaml:"write_timeout"`
	MaxRetries        int    `json:"max_retries"         yaml:"max_retries"`
	RetryBackoff      string `json:"retry_backoff"       yaml:"retry_backoff"`
	AllowInsecureHTTP bool   `json:"allow_insecure_http" yaml:"allow_insecure_http"`
	NATSURL           string `json:"nats_url"            yaml:"nats_url"`
	ConfigFile        string `json:"config_file"         yaml:"config_file"`
}

func (s shownConfig) rows() [][]string {
	return [][]string{
		{"Base URL", s.BaseURL},
		{"Auth Token", s.AuthToken},
		{"Passport", s.Passport},
		{"Passport File", s.PassportFile},
		{"Timeout", s.Timeout},
		{"Connect Timeout", s.ConnectTimeout},
		{"Read Timeout", s.ReadTimeout},
		{"Write Timeout", s.WriteTimeout},
		{"Max Retries", strconv.Itoa(s.MaxRetries)},
		{"Retry Backoff", s.RetryBackoff},
		{"Allow Insecure HTTP", strconv.FormatBool(s.AllowInsecureHTTP)},
		{"NATS URL", s.NATSURL},
		{"Config File", s.ConfigFile},
	}
}

func (c *cli) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect CLI configuration",
		Long:  "Inspect the settings the CLI resolves from flags, environment and config file",
	}

	cmd.AddCommand(c.newConfigShowCommand())

	return cmd
}

func (c *cli) newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the resolved gateway configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.resolveConfig(cmd)
			if err != nil {
				return err
			}

			shown := shownConfig{
				BaseURL:           cfg.BaseURL,
				AuthToken:         maskValue(cfg.AuthToken),
				Passport:          maskValue(cfg.PassportToken),
				PassportFile:      orNotAvailable(c.viper.GetString(keyPassportFile)),
				Timeout:           cfg.Timeout.String(),
				ConnectTimeout:    cfg.ConnectTimeout.String(),
				ReadTimeout:       cfg.ReadTimeout.String(),
				WriteTimeout:      cfg.WriteTimeout.String(),
				MaxRetries:        cfg.MaxRetries,
				RetryBackoff:      cfg.RetryBackoff.String(),
				AllowInsecureHTTP: cfg.AllowInsecureHTTP,
				NATSURL:           orNotAvailable(c.viper.GetString(keyNATSURL)),
				ConfigFile:        orNotAvailable(c.viper.ConfigFileUsed()),
			}

			format := c.output()
			if format != constants.FormatTable {
				return render(cmd.OutOrStdout(), format, shown)
			}

			return renderTable(cmd.OutOrStdout(), []string{"Property", "Value"}, shown.rows())
		},
	}
}

func maskValue(secret string) string {
	if secret == "" {
		return constants.NotAvailable
	}

	return constants.MaskedSecret
}

func orNotAvailable(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
