// Package auth stores the rendering API key in the system keyring.
package auth

import (
	"errors"
	"strings"

	"github.com/reelscout/reelscout/constant"
	"github.com/reelscout/reelscout/key"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const user = "render-api-key"

// SetRenderKey persists the rendering API key to the system keyring.
func SetRenderKey(apiKey string) error {
	return keyring.Set(constant.App, user, strings.TrimSpace(apiKey))
}

// DeleteRenderKey removes the stored key. A missing key is not an error.
func DeleteRenderKey() error {
	if err := keyring.Delete(constant.App, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// RenderKey resolves the rendering API key: the configuration (and therefore
// the REELSCOUT_RENDER_API_KEY environment variable) wins over the keyring.
// An unset key yields an empty string.
func RenderKey() (string, error) {
	if k := strings.TrimSpace(viper.GetString(key.RenderAPIKey)); k != "" {
		return k, nil
	}

	k, err := keyring.Get(constant.App, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return k, err
}
