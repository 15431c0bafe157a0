package config

import "strings"

// ClientConfig is the payload of GET /config: everything the in-browser app
// needs to bootstrap itself.
type ClientConfig struct {
	AllowedParentOrigins         []string `json:"allowedParentOrigins"`
	AuthServerURL                string   `json:"authServerUrl"`
	CookiesEnabled               bool     `json:"cookiesEnabled"`
	MarketingEmailServerURL      string   `json:"marketingEmailServerUrl"`
	MarketingEmailPreferencesURL string   `json:"marketingEmailPreferencesUrl"`
	OAuthClientID                string   `json:"oAuthClientId"`
	OAuthURL                     string   `json:"oAuthUrl"`
	Language                     string   `json:"language"`
	MetricsSampleRate            float64  `json:"metricsSampleRate"`
	SentrySampleRate             float64  `json:"sentrySampleRate"`
	ProfileURL                   string   `json:"profileUrl"`
}

// ClientConfig assembles the /config payload for one request.
func (c *Config) ClientConfig(language string, cookiesEnabled bool) ClientConfig {
	origins := c.AllowedParentOrigins
	if origins == nil {
		origins = []string{}
	}
	return ClientConfig{
		AllowedParentOrigins:         origins,
		AuthServerURL:                c.AuthServerURL,
		CookiesEnabled:               cookiesEnabled,
		MarketingEmailServerURL:      c.MarketingEmailServerURL,
		MarketingEmailPreferencesURL: c.MarketingEmailPreferencesURL,
		OAuthClientID:                c.OAuthClientID,
		OAuthURL:                     c.OAuthURL,
		Language:                     language,
		MetricsSampleRate:            c.MetricsSampleRate,
		SentrySampleRate:             c.SentrySampleRate,
		ProfileURL:                   c.ProfileURL,
	}
}

// NegotiateLanguage picks the best supported language for an Accept-Language
// header value, falling back to the default.
func (c *Config) NegotiateLanguage(acceptLanguage string) string {
	fallback := c.DefaultLanguage
	if fallback == "" && len(c.SupportedLanguages) > 0 {
		fallback = c.SupportedLanguages[0]
	}

	supported := make(map[string]string, len(c.SupportedLanguages))
	for _, lang := range c.SupportedLanguages {
		supported[strings.ToLower(lang)] = lang
		// Also index the bare primary subtag: "en" matches "en-US".
		if i := strings.Index(lang, "-"); i > 0 {
			base := strings.ToLower(lang[:i])
			if _, ok := supported[base]; !ok {
				supported[base] = lang
			}
		}
	}

	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		tag = strings.ToLower(tag)
		if lang, ok := supported[tag]; ok {
			return lang
		}
		if i := strings.Index(tag, "-"); i > 0 {
			if lang, ok := supported[tag[:i]]; ok {
				return lang
			}
		}
	}
	return fallback
}
