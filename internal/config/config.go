// Package config loads runtime configuration from environment variables,
// in the teacher's getEnv/parseX style, expanded from a single-protocol
// bridge config to the full federation/identity/payment surface spec.md
// §6 names as external collaborators.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	InstanceURL       string
	LocalUsername     string
	DatabaseURL       string
	RSAPrivateKeyPath string
	RSAPublicKeyPath  string
	Port              string

	// Identity (FEP-ef61 portable actors).
	PortableIdentitiesEnabled bool
	Ed25519PrivateKeyPath     string

	// SSRF-safe outbound agent (internal/httpagent.Config mirrors these).
	SSRFProtectionEnabled bool
	ProxyURL              string
	OnionProxyURL         string
	I2PProxyURL           string
	UserAgent             string

	// Instance visibility.
	IsInstancePrivate bool
	AutoApproveFollows bool

	// Payments (FEP-0837); the chain RPC client itself is out of scope
	// (spec.md §1) and reached only through agreements.PaymentAddressAllocator.
	MoneroChainID         string
	MoneroWalletRPCURL    string
	SubscriptionPriceUnit int64 // atomic units per second, the default price

	// Tunable performance constants.
	ResyncInterval          time.Duration // RESYNC_INTERVAL — how often remote actor profiles are re-fetched
	APCacheTTL              time.Duration // AP_CACHE_TTL — Cache-Control max-age on served actor, object, WebFinger and NodeInfo documents
	APFederationConcurrency int           // AP_FEDERATION_CONCURRENCY — max concurrent outbound deliveries
	DeliveryPollInterval    time.Duration // DELIVERY_POLL_INTERVAL — job-queue poll cadence when idle
	InboxMaxBodyBytes       int64         // INBOX_MAX_BODY_BYTES — inbound request body cap
	InvoiceSweepInterval    time.Duration // INVOICE_SWEEP_INTERVAL — cadence of the Open->Timeout sweep
	InvoiceTimeoutDeadline  time.Duration // INVOICE_TIMEOUT_DEADLINE — how long an invoice may stay Open
}

// Load reads configuration from environment variables. Panics (via os.Exit,
// matching the teacher's Load) if INSTANCE_URL is unset; DATABASE_URL falls
// back to a default.
func Load() *Config {
	instanceURL := getEnv("INSTANCE_URL", "")
	if instanceURL == "" {
		fmt.Fprintln(os.Stderr, "ERROR: INSTANCE_URL is not set!")
		fmt.Fprintln(os.Stderr, "Set it to this instance's externally reachable base URL.")
		os.Exit(1)
	}
	instanceURL = strings.TrimRight(instanceURL, "/")

	return &Config{
		InstanceURL:       instanceURL,
		LocalUsername:     getEnv("LOCAL_USERNAME", "admin"),
		DatabaseURL:       getEnv("DATABASE_URL", "mitra.db"),
		RSAPrivateKeyPath: getEnv("RSA_PRIVATE_KEY_PATH", "private.pem"),
		RSAPublicKeyPath:  getEnv("RSA_PUBLIC_KEY_PATH", "public.pem"),
		Port:              getEnv("PORT", "8000"),

		PortableIdentitiesEnabled: getEnvBool("PORTABLE_IDENTITIES_ENABLED"),
		Ed25519PrivateKeyPath:     getEnv("ED25519_PRIVATE_KEY_PATH", "ed25519.pem"),

		SSRFProtectionEnabled: getEnv("SSRF_PROTECTION_ENABLED", "true") != "false",
		ProxyURL:              os.Getenv("PROXY_URL"),
		OnionProxyURL:         os.Getenv("ONION_PROXY_URL"),
		I2PProxyURL:           os.Getenv("I2P_PROXY_URL"),
		UserAgent:             getEnv("USER_AGENT", "mitra/1.0"),

		IsInstancePrivate:  getEnvBool("INSTANCE_IS_PRIVATE"),
		AutoApproveFollows: getEnv("AUTO_APPROVE_FOLLOWS", "true") != "false",

		MoneroChainID:         getEnv("MONERO_CHAIN_ID", "monero:418015bb9ae982a1975da7d79277c270"),
		MoneroWalletRPCURL:    os.Getenv("MONERO_WALLET_RPC_URL"),
		SubscriptionPriceUnit: parseInt64(os.Getenv("SUBSCRIPTION_PRICE_ATOMIC_UNITS"), 20000),

		ResyncInterval:          parseDuration(os.Getenv("RESYNC_INTERVAL"), 24*time.Hour),
		APCacheTTL:              parseDuration(os.Getenv("AP_CACHE_TTL"), time.Hour),
		APFederationConcurrency: parseInt(os.Getenv("AP_FEDERATION_CONCURRENCY"), 10),
		DeliveryPollInterval:    parseDuration(os.Getenv("DELIVERY_POLL_INTERVAL"), 5*time.Second),
		InboxMaxBodyBytes:       parseInt64(os.Getenv("INBOX_MAX_BODY_BYTES"), 1<<20),
		InvoiceSweepInterval:    parseDuration(os.Getenv("INVOICE_SWEEP_INTERVAL"), 10*time.Minute),
		InvoiceTimeoutDeadline:  parseDuration(os.Getenv("INVOICE_TIMEOUT_DEADLINE"), time.Hour),
	}
}

// URL returns the parsed instance URL as a *url.URL.
func (c *Config) URL() *url.URL {
	u, _ := url.Parse(c.InstanceURL)
	return u
}

// BaseURL constructs an absolute URL from a path.
func (c *Config) BaseURL(path string) string {
	return c.InstanceURL + path
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return i
}

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
