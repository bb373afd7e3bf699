package commands

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// viperEnvironment serves APP_PLANE_* lookups from viper, so each variable
// can also be set in the config file under its snake case name without
// the prefix: APP_PLANE_BASE_URL is base_url.
type viperEnvironment struct {
	viper *viper.Viper
}

var _ appplane.Environment = viperEnvironment{}

// Lookup implements appplane.Environment.
func (e viperEnvironment) Lookup(key string) (string, bool) {
	name := configKey(key)
	if !e.viper.IsSet(name) {
		return "", false
	}

	return e.viper.GetString(name), true
}

func configKey(envKey string) string {
	return strings.ToLower(strings.TrimPrefix(envKey, envPrefix+"_"))
}
