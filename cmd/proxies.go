package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/reelscout/reelscout/icon"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/network"
	"github.com/reelscout/reelscout/proxy"
	"github.com/reelscout/reelscout/style"
	"github.com/reelscout/reelscout/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(proxiesCmd)

	proxiesCmd.Flags().StringP("check", "c", "", "Probe every proxy with a GET to this URL")
	proxiesCmd.Flags().BoolP("json", "j", false, "Print the pool statistics as JSON")
	proxiesCmd.SetOut(os.Stdout)
}

var proxiesCmd = &cobra.Command{
	Use:   "proxies",
	Short: "List the configured proxies and optionally probe them",
	Run: func(cmd *cobra.Command, args []string) {
		pool, err := newPool()
		handleErr(err)

		if pool.Len() == 0 {
			cmd.Printf("%s no proxies configured, set %s\n", style.Fg(style.Yellow)(icon.Get(icon.Warn)), key.ProxyEndpoints)
			return
		}

		if target := lo.Must(cmd.Flags().GetString("check")); target != "" {
			probeProxies(cmd.Context(), pool, target)
		}

		stats := pool.Stats()
		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(stats))
			return
		}

		for _, s := range stats {
			mark := style.Fg(style.Green)(icon.Get(icon.Success))
			if s.Failed {
				mark = style.Fg(style.Red)(icon.Get(icon.Fail))
			}
			cmd.Printf("%s %s %s\n", mark, s.Endpoint, style.Faint(fmt.Sprintf("%d ok, %d failed", s.SuccessCount, s.FailureCount)))
		}
		cmd.Println(style.Faint(util.Quantify(len(stats), "proxy", "proxies")))
	},
}

// probeProxies sends one request through every endpoint and reports the outcome to the pool.
func probeProxies(ctx context.Context, pool *proxy.Pool, target string) {
	if ctx == nil {
		ctx = context.Background()
	}

	timeout := seconds(key.FetchTimeout)

	var g errgroup.Group
	g.SetLimit(4)
	for _, s := range pool.Stats() {
		ep := s.Endpoint
		g.Go(func() error {
			client := network.NewProxyClient(ep.URL(), timeout)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return err
			}
			network.SetBrowserHeaders(req, network.RandomUserAgent())

			resp, err := client.Do(req)
			if err != nil {
				pool.ReportFailure(ep)
				return nil
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				pool.ReportSuccess(ep)
			} else {
				pool.ReportFailure(ep)
			}
			return nil
		})
	}
	handleErr(g.Wait())
}
