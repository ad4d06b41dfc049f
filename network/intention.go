package network

import "strings"

// The host's connection-intention packet carries a hostname-like field. The
// framework smuggles its version flag into that field as extra tokens after
// the real hostname, separated by null bytes. An unmodified peer sends the
// bare hostname and is therefore recognised by the absence of any token.

// IntentionSuffix returns the tokens this side appends to its intention
// hostname field.
func IntentionSuffix() []string {
	return []string{NetVersion}
}

// EncodeIntentionHost joins the real hostname with this side's extra tokens.
func EncodeIntentionHost(host string) string {
	return host + "\x00" + strings.Join(IntentionSuffix(), "\x00")
}

// ParseIntentionTokens splits a received hostname field into its extra
// tokens, dropping the real hostname in front.
func ParseIntentionTokens(host string) []string {
	parts := strings.Split(host, "\x00")
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// ExtensionVersion finds the framework's version flag among intention
// tokens, or NoVersion when the peer declared none.
func ExtensionVersion(tokens []string) string {
	for _, token := range tokens {
		if strings.HasPrefix(token, NetMarker) {
			return token
		}
	}
	return NoVersion
}
