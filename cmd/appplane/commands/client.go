package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fivetwenty-io/appplane-client/internal/auth"
	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appclient"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// resolveConfig merges flags over the viper environment.
func (c *cli) resolveConfig(cmd *cobra.Command) (appplane.Config, error) {
	flags := cmd.Flags()

	var opts []appplane.Option

	if flags.Changed("base-url") {
		value, _ := flags.GetString("base-url")
		opts = append(opts, appplane.WithBaseURL(value))
	}

	if flags.Changed("token") {
		value, _ := flags.GetString("token")
		opts = append(opts, appplane.WithAuthToken(value))
	}

	if flags.Changed("allow-insecure-http") {
		value, _ := flags.GetBool("allow-insecure-http")
		opts = append(opts, appplane.WithAllowInsecureHTTP(value))
	}

	if flags.Changed("timeout") {
		value, _ := flags.GetDuration("timeout")
		opts = append(opts, appplane.WithTimeout(value))
	}

	if flags.Changed("max-retries") {
		value, _ := flags.GetInt("max-retries")
		opts = append(opts, appplane.WithMaxRetries(value))
	}

	if flags.Changed("retry-backoff") {
		value, _ := flags.GetDuration("retry-backoff")
		opts = append(opts, appplane.WithRetryBackoff(value))
	}

	if ask, _ := flags.GetBool("ask-token"); ask {
		token, err := promptToken(os.Stdin, cmd.ErrOrStderr())
		if err != nil {
			return appplane.Config{}, err
		}

		opts = append(opts, appplane.WithAuthToken(token))
	}

	cfg, err := appplane.Resolve(viperEnvironment{viper: c.viper}, opts...)
	if errors.Is(err, appplane.ErrBaseURLRequired) {
		return appplane.Config{}, constants.ErrNoBaseURLConfigured
	}

	return cfg, err
}

// newClient builds a client for cmd. The returned func releases the cache
// connection, if any.
func (c *cli) newClient(ctx context.Context, cmd *cobra.Command) (*appclient.Client, func(), error) {
	cfg, err := c.resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	verbose := c.viper.GetBool(keyVerbose)

	level := "warn"
	if verbose {
		level = "debug"
	}

	opts := []appclient.Option{
		appclient.WithLogger(appplane.NewTextLogger(cmd.ErrOrStderr(), level)),
		appclient.WithDebug(verbose),
		appclient.WithUserAgent("appplane-cli/" + c.info.Version),
	}

	if path := c.viper.GetString(keyPassportFile); path != "" {
		source, sourceErr := auth.NewFileTokenSource(path)
		if sourceErr != nil {
			return nil, nil, sourceErr
		}

		opts = append(opts, appclient.WithPassportSource(source))
	}

	release := func() {}

	if natsURL := c.viper.GetString(keyNATSURL); natsURL != "" {
		ttl := c.viper.GetDuration(keyCacheTTL)

		cache, cacheErr := appplane.NewCacheFromConfig(ctx, &appplane.CacheConfig{
			Type:    appplane.CacheTypeNATS,
			NATS:    &appplane.NATSKVConfig{URL: natsURL},
			Options: &appplane.CacheOptions{TTL: ttl},
		})
		if cacheErr != nil {
			return nil, nil, fmt.Errorf("connecting response cache: %w", cacheErr)
		}

		if closer, ok := cache.(*appplane.NATSKVCache); ok {
			release = closer.Close
		}

		opts = append(opts, appclient.WithCache(cache, ttl))
	}

	client, err := appclient.New(cfg, opts...)
	if err != nil {
		release()

		return nil, nil, err
	}

	return client, release, nil
}

func promptToken(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd()) // #nosec G115 -- file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", constants.ErrTokenPromptNoTTY
	}

	_, _ = fmt.Fprint(out, "Token: ")

	tokenBytes, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(out)

	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	return strings.TrimSpace(string(tokenBytes)), nil
}
