package appplane

import "os"

// Environment variable names consulted by Resolve.
const (
	EnvBaseURL           = "APP_PLANE_BASE_URL"
	EnvAllowInsecureHTTP = "APP_PLANE_ALLOW_INSECURE_HTTP"
	EnvAuthToken         = "APP_PLANE_AUTH_TOKEN"
	EnvPassportToken     = "APP_PLANE_PASSPORT"
	EnvTimeoutMS         = "APP_PLANE_TIMEOUT_MS"
	EnvConnectTimeoutMS  = "APP_PLANE_CONNECT_TIMEOUT_MS"
	EnvReadTimeoutMS     = "APP_PLANE_READ_TIMEOUT_MS"
	EnvWriteTimeoutMS    = "APP_PLANE_WRITE_TIMEOUT_MS"
	EnvMaxRetries        = "APP_PLANE_MAX_RETRIES"
	EnvRetryBackoffMS    = "APP_PLANE_RETRY_BACKOFF_MS"
)

// EnvironmentKeys lists every key Resolve may look up.
func EnvironmentKeys() []string {
	return []string{
		EnvBaseURL,
		EnvAllowInsecureHTTP,
		EnvAuthToken,
		EnvPassportToken,
		EnvTimeoutMS,
		EnvConnectTimeoutMS,
		EnvReadTimeoutMS,
		EnvWriteTimeoutMS,
		EnvMaxRetries,
		EnvRetryBackoffMS,
	}
}

// Environment is the single source of ambient configuration defaults.
// Tests supply a MapEnvironment instead of touching process state.
type Environment interface {
	Lookup(key string) (string, bool)
}

// EnvironmentFunc adapts a lookup function to Environment.
type EnvironmentFunc func(key string) (string, bool)

// Lookup implements Environment.
func (f EnvironmentFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// OSEnvironment reads the process environment.
func OSEnvironment() Environment {
	return EnvironmentFunc(os.LookupEnv)
}

// MapEnvironment is a fixed, in-memory environment.
type MapEnvironment map[string]string

// Lookup implements Environment.
func (m MapEnvironment) Lookup(key string) (string, bool) {
	value, ok := m[key]

	return value, ok
}

type emptyEnvironment struct{}

func (emptyEnvironment) Lookup(string) (string, bool) { return "", false }
