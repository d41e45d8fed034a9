package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/muesli/reflow/wrap"
	"github.com/reelscout/reelscout/constant"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.App + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

// DefaultSuspiciousDomains are substrings of redirect targets that indicate a bounce to an
// ad, tracker or parking page instead of the requested listing.
var DefaultSuspiciousDomains = []string{
	"doubleclick", "adservice", "adsystem", "popads", "propellerads", "onclickads",
	"trk.", "tracker", "redirect.", "bit.ly", "sedoparking", "parkingcrew", "bodis.com",
}

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.DefaultSources, []string{}, "Default sources to collect from.\nWill prompt if not set.\nType \"reelscout sources list\" to show available sources")
	register(key.SourcesCatalog, "", "URL of a YAML profile catalog used by \"reelscout sources update\"")
	register(key.CollectTarget, 20, "Number of unique records a run aims for")
	register(key.CollectMaxPages, 5, "Maximum number of listing pages fetched per run")
	register(key.CollectMaxAttempts, 10, "Maximum number of failed page attempts per run")
	register(key.CollectBackoff, 2, "Seconds to wait after a failed page attempt")
	register(key.CollectConcurrency, 3, "Number of sources collected in parallel")
	register(key.CollectTimeout, 300, "Run deadline in seconds. The partial run is returned when it expires")
	register(key.FetchDirectAttempts, 2, "Direct tier attempts on network errors before escalating")
	register(key.FetchProxyAttempts, 3, "Proxies tried before escalating to the browser tier")
	register(key.FetchMaxRedirects, 5, "Maximum redirect hops followed by the direct tier")
	register(key.FetchTimeout, 30, "HTTP request timeout in seconds")
	register(key.FetchRateLimit, 2, "Requests per second issued by one fetcher. 0 disables limiting")
	register(key.FetchTLSFingerprint, true, "Use a Chrome TLS fingerprint for direct requests")
	register(key.ClassifyMinBodyBytes, 500, "Bodies shorter than this are treated as block pages")
	register(key.ClassifyScanBytes, 16384, "Number of body bytes scanned for block page markers")
	register(key.ClassifySuspiciousDomains, DefaultSuspiciousDomains, "Redirect targets containing any of these substrings are never followed")
	register(key.ProxyEndpoints, []string{}, "Proxy endpoints in the form [scheme://][user:pass@]host:port[#CC]")
	register(key.BrowserEnabled, true, "Enable the headless browser tier")
	register(key.BrowserBin, "", "Path to a Chromium binary. Empty downloads or locates one automatically")
	register(key.BrowserHeadless, true, "Run the browser without a window")
	register(key.BrowserNavTimeout, 30, "Browser navigation timeout in seconds")
	register(key.BrowserWaitFallback, 3000, "Milliseconds to wait when the wait selector never appears")
	register(key.BrowserScrollSteps, 5, "Viewport scrolls performed to trigger lazy loading")
	register(key.BrowserScreenshots, false, "Save a screenshot when the wait selector times out")
	register(key.RenderEnabled, false, "Enable the paid rendering API tier")
	register(key.RenderEndpoint, "https://api.scrapingant.com/v2/general", "Rendering API endpoint")
	register(key.RenderAPIKey, "", "Rendering API key. Falls back to the system keyring")
	register(key.RenderCacheTTL, 30, "Minutes a rendered page is served from the local cache")
	register(key.StreamDefaultExpiry, 24, "Stream expiry in hours for sources that do not set one")
	register(key.StreamCapture, 8, "Seconds to listen for media responses after each navigation")
	register(key.HistorySave, true, "Save a summary of every collection run")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Check for a newer release when printing the version")
}

const descriptionWidth = 72

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(style.Purple),
	"blue":     style.Fg(style.Blue),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"wrap":     func(s string) string { return wrap.String(s, descriptionWidth) },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(style.Green)(b)
			}
			return style.Fg(style.Red)(b)
		case string:
			return style.Fg(style.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint (wrap .Description) }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
