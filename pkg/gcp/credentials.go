// Package gcp holds what the Cloud Storage and Pub/Sub clients share.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
)

// ClientOptions picks credentials: inline JSON first, then a key file. With
// neither, the client falls back to Application Default Credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
