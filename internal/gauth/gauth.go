// Package gauth builds Google API client options from service account
// credentials. The Sheets adapter and the speech synthesizer share it so one
// key file can serve both.
package gauth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
)

// ServiceAccountKey represents the structure of a service account JSON key file
type ServiceAccountKey struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// ParseServiceAccountJSON parses a service account JSON file or data
func ParseServiceAccountJSON(jsonData []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(jsonData, &key); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}

	if key.Type != "service_account" {
		return nil, fmt.Errorf("invalid key type: %s (expected: service_account)", key.Type)
	}

	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("missing required fields in service account key")
	}

	return &key, nil
}

// ResolveKeyFile returns path, or GOOGLE_APPLICATION_CREDENTIALS when path is empty
func ResolveKeyFile(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if env := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("no JSON key file path provided and GOOGLE_APPLICATION_CREDENTIALS not set")
}

// FromJSONKeyFile returns client options authenticated by a JSON key file
func FromJSONKeyFile(ctx context.Context, jsonPath string, scopes ...string) ([]option.ClientOption, error) {
	path, err := ResolveKeyFile(jsonPath)
	if err != nil {
		return nil, err
	}

	jsonData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON key file: %w", err)
	}
	return FromJSONKeyData(ctx, jsonData, scopes...)
}

// FromJSONKeyData returns client options authenticated by JSON key data
func FromJSONKeyData(ctx context.Context, jsonData []byte, scopes ...string) ([]option.ClientOption, error) {
	creds, err := google.CredentialsFromJSON(ctx, jsonData, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

// FromServiceAccountKey returns client options for an email and private key pair
func FromServiceAccountKey(ctx context.Context, email, privateKey string, scopes ...string) []option.ClientOption {
	return []option.ClientOption{option.WithTokenSource(jwtTokenSource(ctx, email, privateKey, scopes))}
}

// FromDefaultCredentials uses Application Default Credentials:
// GOOGLE_APPLICATION_CREDENTIALS, gcloud application-default login, or the
// GCE metadata service.
func FromDefaultCredentials(ctx context.Context, scopes ...string) ([]option.ClientOption, error) {
	tokenSource, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to get default token source: %w", err)
	}
	return []option.ClientOption{option.WithTokenSource(tokenSource)}, nil
}

// CreateTokenSource creates an oauth2.TokenSource from various credential types:
// a key file path, JSON key data, or a parsed *ServiceAccountKey.
func CreateTokenSource(ctx context.Context, credentials interface{}, scopes ...string) (oauth2.TokenSource, error) {
	switch cred := credentials.(type) {
	case string:
		jsonData, err := os.ReadFile(cred)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return tokenSourceFromJSON(ctx, jsonData, scopes)
	case []byte:
		return tokenSourceFromJSON(ctx, cred, scopes)
	case *ServiceAccountKey:
		return jwtTokenSource(ctx, cred.ClientEmail, cred.PrivateKey, scopes), nil
	default:
		return nil, fmt.Errorf("unsupported credential type: %T", credentials)
	}
}

func tokenSourceFromJSON(ctx context.Context, jsonData []byte, scopes []string) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, jsonData, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func jwtTokenSource(ctx context.Context, email, privateKey string, scopes []string) oauth2.TokenSource {
	jwtConfig := &jwt.Config{
		Email:      email,
		PrivateKey: []byte(privateKey),
		Scopes:     scopes,
		TokenURL:   google.JWTTokenURL,
	}
	return jwtConfig.TokenSource(ctx)
}
