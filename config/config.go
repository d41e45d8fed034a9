// Package config wires defaults, environment variables and the TOML file into viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/reelscout/reelscout/constant"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps configuration keys to environment variable suffixes.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// File is the path of the configuration file, whether or not it exists yet.
func File() string {
	return filepath.Join(where.Config(), constant.App+".toml")
}

// Setup loads defaults, binds the exposed environment variables and reads the
// configuration file when there is one.
func Setup() error {
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	err := viper.ReadInConfig()
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		return nil
	}
	return err
}

// positive lists keys whose value must be at least one.
var positive = []string{
	key.CollectTarget,
	key.CollectMaxPages,
	key.CollectMaxAttempts,
	key.CollectConcurrency,
	key.FetchDirectAttempts,
	key.FetchTimeout,
	key.BrowserNavTimeout,
	key.StreamCapture,
}

// Validate reports every run budget or timeout that is out of range.
func Validate() error {
	var errs []error
	for _, k := range positive {
		if v := viper.GetInt(k); v < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", k, v))
		}
	}

	for _, k := range []string{key.FetchProxyAttempts, key.FetchMaxRedirects, key.CollectBackoff, key.CollectTimeout} {
		if v := viper.GetInt(k); v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", k, v))
		}
	}

	if viper.GetFloat64(key.FetchRateLimit) < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", key.FetchRateLimit))
	}

	if viper.GetBool(key.RenderEnabled) && viper.GetString(key.RenderEndpoint) == "" {
		errs = append(errs, fmt.Errorf("%s is enabled without %s", key.RenderEnabled, key.RenderEndpoint))
	}

	return errors.Join(errs...)
}
