package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config holds the Firebase project settings.
type Config struct {
	ProjectID       string
	CredentialsFile string // empty uses Application Default Credentials
}

// Verifier validates Firebase ID tokens and returns the token's uid.
type Verifier struct {
	auth *fbauth.Client
}

// New initializes the Firebase app and its auth client.
func New(ctx context.Context, cfg Config) (*Verifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase: project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}

	return &Verifier{auth: client}, nil
}

// Verify implements identity.Verifier.
func (v *Verifier) Verify(ctx context.Context, idToken string) (string, error) {
	token, err := v.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("verify id token: %w", err)
	}
	uid := strings.TrimSpace(token.UID)
	if uid == "" {
		return "", errors.New("verified token has empty uid")
	}
	return uid, nil
}
