package opts

import (
	"regexp"
	"strings"
)

// SecretMask replaces secret values in logs and property dumps.
const SecretMask = "[secure]"

var (
	secretKeyPattern = regexp.MustCompile(`(?i)(pass|secret|token|credential|private[._-]?key|keyname)`)
	// key, separator, value; the key must look secret for the value to be masked.
	secretPairPattern = regexp.MustCompile(`([A-Za-z0-9_.\-]+)(\s*[=:]\s*)([^\s,;&]+)`)
)

// IsSecretKey reports whether key names a secret-like property.
func IsSecretKey(key string) bool {
	return secretKeyPattern.MatchString(key)
}

// MaskValue hides value unless it is empty or the literal "null".
func MaskValue(value string) string {
	if value == "" || value == "null" {
		return value
	}
	return SecretMask
}

// MaskProperty returns value, masked when key looks secret.
func MaskProperty(key, value string) string {
	if !IsSecretKey(key) {
		return value
	}
	return MaskValue(value)
}

// MaskProperties returns a copy of props with secret-like values masked.
func MaskProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for key, value := range props {
		out[key] = MaskProperty(key, value)
	}
	return out
}

// MaskSecrets rewrites every key=value or key: value pair in text whose key
// looks secret. "password=pass" becomes "password=[secure]"; "password=null"
// is left unchanged.
func MaskSecrets(text string) string {
	if text == "" {
		return text
	}
	return secretPairPattern.ReplaceAllStringFunc(text, func(pair string) string {
		parts := secretPairPattern.FindStringSubmatch(pair)
		key, separator, value := parts[1], parts[2], parts[3]
		if !IsSecretKey(key) || strings.EqualFold(value, "null") {
			return pair
		}
		return key + separator + SecretMask
	})
}
