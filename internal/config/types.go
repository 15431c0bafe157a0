package config

import (
	"encoding/json"
	"time"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the account-store persistence backend.
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageFirestore StorageKind = "firestore"
	StorageRedis     StorageKind = "redis"
)

// StorageConfig configures account persistence.
type StorageConfig struct {
	Kind StorageKind `json:"kind,omitempty"`

	// Firestore
	ProjectID  string `json:"projectId,omitempty"`
	Collection string `json:"collection,omitempty"`

	// Redis
	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword Secret `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDb,omitempty"`
}

// Config holds the full configuration of the content front.
type Config struct {
	// Addr is the listen address, e.g. ":3030". The PORT environment
	// variable overrides the port part.
	Addr string `json:"addr"`

	// PublicURL is the externally visible base URL of this front.
	PublicURL string `json:"publicUrl"`

	// Collaborator endpoints.
	AuthServerURL                string `json:"authServerUrl"`
	OAuthURL                     string `json:"oauthUrl"`
	OAuthClientID                string `json:"oauthClientId"`
	ProfileURL                   string `json:"profileUrl"`
	MarketingEmailServerURL      string `json:"marketingEmailServerUrl"`
	MarketingEmailPreferencesURL string `json:"marketingEmailPreferencesUrl"`

	// AllowedParentOrigins is the server-supplied allow-list used when the
	// app is embedded for Sync.
	AllowedParentOrigins []string `json:"allowedParentOrigins,omitempty"`

	// i18n
	SupportedLanguages []string `json:"supportedLanguages,omitempty"`
	DefaultLanguage    string   `json:"defaultLanguage,omitempty"`

	// Sampling rates in [0,1].
	MetricsSampleRate float64 `json:"metricsSampleRate"`
	SentrySampleRate  float64 `json:"sentrySampleRate"`

	// VarPath is where mutable runtime state lives.
	VarPath string `json:"varPath,omitempty"`

	Storage StorageConfig `json:"storage,omitempty"`

	// ChannelRequestTimeout bounds channel request/response round trips.
	ChannelRequestTimeout time.Duration `json:"-"`

	// ChannelRequestTimeoutRaw is the JSON form, e.g. "90s".
	ChannelRequestTimeoutRaw string `json:"channelRequestTimeout,omitempty"`
}
