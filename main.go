// Package main is the entry point for reelscout.
package main

import (
	"time"

	"github.com/reelscout/reelscout/cmd"
	"github.com/reelscout/reelscout/config"
	"github.com/reelscout/reelscout/internal/cache"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/log"
	"github.com/reelscout/reelscout/where"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	// Expired rendered pages are swept in the background.
	go cache.New(where.Rendered(), time.Duration(viper.GetInt(key.RenderCacheTTL))*time.Minute).Prune()

	cmd.Execute()
}
