// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Source Selection - these keys manage which source profiles a run targets.
const (
	DefaultSources = "sources.default"
	SourcesCatalog = "sources.catalog_url"
)

// Collection Budgets - these keys bound every pagination run.
const (
	CollectTarget      = "collect.target"
	CollectMaxPages    = "collect.max_pages"
	CollectMaxAttempts = "collect.max_attempts"
	CollectBackoff     = "collect.backoff_seconds"
	CollectConcurrency = "collect.concurrency"
	CollectTimeout     = "collect.timeout_seconds"
)

// Fetch Ladder - these keys tune the direct and proxy tiers.
const (
	FetchDirectAttempts = "fetch.direct_attempts"
	FetchProxyAttempts  = "fetch.proxy_attempts"
	FetchMaxRedirects   = "fetch.max_redirects"
	FetchTimeout        = "fetch.timeout_seconds"
	FetchRateLimit      = "fetch.rate_limit"
	FetchTLSFingerprint = "fetch.tls_fingerprint"
)

// Block Page Classification
const (
	ClassifyMinBodyBytes      = "classify.min_body_bytes"
	ClassifyScanBytes         = "classify.scan_bytes"
	ClassifySuspiciousDomains = "classify.suspicious_domains"
)

// Proxy Pool
const (
	ProxyEndpoints = "proxy.endpoints"
)

// Headless Browser - these keys configure the browser tier and the stream extractor.
const (
	BrowserEnabled      = "browser.enabled"
	BrowserBin          = "browser.bin"
	BrowserHeadless     = "browser.headless"
	BrowserNavTimeout   = "browser.nav_timeout_seconds"
	BrowserWaitFallback = "browser.wait_fallback_ms"
	BrowserScrollSteps  = "browser.scroll_steps"
	BrowserScreenshots  = "browser.screenshots"
)

// Rendering API - these keys configure the paid last-resort tier.
const (
	RenderEnabled  = "render.enabled"
	RenderEndpoint = "render.endpoint"
	RenderAPIKey   = "render.api_key"
	RenderCacheTTL = "render.cache_minutes"
)

// Stream Extraction
const (
	StreamDefaultExpiry = "stream.default_expiry_hours"
	StreamCapture       = "stream.capture_seconds"
)

// History Tracking - these keys configure the persistence of run summaries.
const (
	HistorySave = "history.save"
)

// Iconography - these keys manage the visual rendering of CLI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
