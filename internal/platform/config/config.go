package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultEnvironment         = "local"
	defaultShopifyAPIVersion   = "2024-01"
	defaultShopifyTimeout      = 10 * time.Second
	defaultShopifyMaxRetries   = 2
	defaultZoneCacheTTL        = 5 * time.Minute
	defaultDisplayLocale       = "fr-FR"
	defaultIdempotencyHeader   = "Idempotency-Key"
	defaultIdempotencyTTL      = 30 * time.Minute
	defaultIdempotencyInterval = 10 * time.Minute
	defaultIdempotencyBatch    = 500

	// AccessTokenSecret names the Shopify token for WithRequiredSecrets.
	AccessTokenSecret = "Shopify.AccessToken"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Shopify     ShopifyConfig
	Shipping    ShippingConfig
	Display     DisplayConfig
	Idempotency IdempotencyConfig
	Secrets     SecretsConfig
	Trace       TraceConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ShopifyConfig points the commerce client at a store.
type ShopifyConfig struct {
	StoreDomain string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	MaxRetries  int
}

// Configured reports whether the store can be reached.
func (c ShopifyConfig) Configured() bool {
	return c.StoreDomain != "" && c.AccessToken != ""
}

// ShippingConfig controls where zones come from and how long they are cached.
type ShippingConfig struct {
	ZonesFile    string
	ZoneCacheTTL time.Duration
}

// DisplayConfig holds presentation settings for kiosk screens.
type DisplayConfig struct {
	Locale string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// SecretsConfig configures the Secret Manager fetcher.
type SecretsConfig struct {
	DefaultProjectID string
	FallbackFile     string
	CredentialsFile  string
}

// TraceConfig names the project used to format Cloud Trace log fields.
type TraceConfig struct {
	ProjectID string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved to nothing.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the secret identifiers, sorted.
func (e *MissingSecretsError) Names() []string {
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

// RedactedNames returns short hashes of the identifiers, safe for logs.
func (e *MissingSecretsError) RedactedNames() []string {
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, redactSecretName(name))
	}
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take precedence over
// system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret fields (e.g. AccessTokenSecret) as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// EnvironmentValues returns the effective key/value map after applying the same precedence
// as Load (dotenv < OS env < explicit map). main uses it to build the secret fetcher before
// calling Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)

	values, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// Load assembles the configuration from defaults, .env overrides, environment variables and
// Secret Manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	values, err := EnvironmentValues(opts...)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "KIOSK_ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "KIOSK_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "KIOSK_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "KIOSK_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "KIOSK_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Shopify: ShopifyConfig{
			StoreDomain: normalizeDomain(stringWithDefault(lookup, "KIOSK_SHOPIFY_STORE_DOMAIN", "")),
			AccessToken: stringWithDefault(lookup, "KIOSK_SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:  stringWithDefault(lookup, "KIOSK_SHOPIFY_API_VERSION", defaultShopifyAPIVersion),
			Timeout:     durationWithDefault(lookup, "KIOSK_SHOPIFY_TIMEOUT", defaultShopifyTimeout),
			MaxRetries:  intWithDefault(lookup, "KIOSK_SHOPIFY_MAX_RETRIES", defaultShopifyMaxRetries),
		},
		Shipping: ShippingConfig{
			ZonesFile:    stringWithDefault(lookup, "KIOSK_SHIPPING_ZONES_FILE", ""),
			ZoneCacheTTL: durationWithDefault(lookup, "KIOSK_SHIPPING_ZONE_CACHE_TTL", defaultZoneCacheTTL),
		},
		Display: DisplayConfig{
			Locale: stringWithDefault(lookup, "KIOSK_DISPLAY_LOCALE", defaultDisplayLocale),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "KIOSK_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "KIOSK_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "KIOSK_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "KIOSK_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatch),
		},
		Secrets: SecretsConfig{
			DefaultProjectID: stringWithDefault(lookup, "KIOSK_SECRET_DEFAULT_PROJECT_ID", ""),
			FallbackFile:     stringWithDefault(lookup, "KIOSK_SECRET_FALLBACK_FILE", ""),
			CredentialsFile:  stringWithDefault(lookup, "KIOSK_GCP_CREDENTIALS_FILE", ""),
		},
		Trace: TraceConfig{
			ProjectID: stringWithDefault(lookup, "KIOSK_TRACE_PROJECT_ID", ""),
		},
	}

	resolved := make(map[string]string)
	token, err := resolveSecret(ctx, cfg.Shopify.AccessToken, options.secret)
	if err != nil {
		return Config{}, err
	}
	cfg.Shopify.AccessToken = strings.TrimSpace(token)
	resolved[AccessTokenSecret] = cfg.Shopify.AccessToken

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

// validateConfig requires a reachable store unless a static zone file lets the kiosk price
// carts offline. A domain without a token is always rejected.
func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch {
	case cfg.Shopify.StoreDomain != "" && cfg.Shopify.AccessToken == "":
		missing = append(missing, AccessTokenSecret)
	case cfg.Shopify.StoreDomain == "" && cfg.Shipping.ZonesFile == "":
		missing = append(missing, "Shopify.StoreDomain")
	}
	if cfg.Shopify.MaxRetries < 0 {
		missing = append(missing, "Shopify.MaxRetries")
	}
	if cfg.Shopify.Timeout <= 0 {
		missing = append(missing, "Shopify.Timeout")
	}
	if cfg.Shipping.ZoneCacheTTL < 0 {
		missing = append(missing, "Shipping.ZoneCacheTTL")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var names []string
	seen := make(map[string]struct{})
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(resolved[name]) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return &MissingSecretsError{names: names}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

// normalizeDomain accepts "shop.myshopify.com" as well as a pasted admin URL.
func normalizeDomain(raw string) string {
	domain := strings.TrimSpace(raw)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	if _, err := os.Stat(absPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	values, err := godotenv.Read(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}
