package relier

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// resumeAllowedKeys is the flat allowlist of fields that survive the resume
// token round trip. Anything else is silently dropped on both encode and
// decode, never an error.
var resumeAllowedKeys = map[string]struct{}{
	"campaign":             {},
	"entrypoint":           {},
	"state":                {},
	"verificationRedirect": {},
	"utmCampaign":          {},
	"utmContent":           {},
	"utmMedium":            {},
	"utmSource":            {},
	"utmTerm":              {},
}

// EncodeResumeToken serializes the allowlisted subset of fields as
// base64url(JSON) for appending to verification-email links.
func EncodeResumeToken(fields map[string]string) (string, error) {
	filtered := make(map[string]string, len(fields))
	for key, value := range fields {
		if _, ok := resumeAllowedKeys[key]; !ok {
			continue
		}
		if value == "" {
			continue
		}
		filtered[key] = value
	}

	data, err := json.Marshal(filtered)
	if err != nil {
		return "", fmt.Errorf("encoding resume token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeResumeToken parses a resume token back into its field map. Unknown
// keys are dropped; a token that is not base64url(JSON object) is an error.
func DecodeResumeToken(token string) (map[string]string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		// Tolerate padded tokens from older senders.
		data, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return nil, fmt.Errorf("decoding resume token: %w", err)
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing resume token: %w", err)
	}

	fields := make(map[string]string)
	for key, value := range raw {
		if _, ok := resumeAllowedKeys[key]; !ok {
			continue
		}
		if s, ok := value.(string); ok {
			fields[key] = s
		}
	}
	return fields, nil
}
