package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":   "a2h-dev",
		"API_STORAGE_PROOFS_BUCKET": "a2h-proofs-dev",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "a2h-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Events.ProjectID != "a2h-dev" {
		t.Errorf("expected events project to default to firebase project, got %s", cfg.Events.ProjectID)
	}
	if cfg.Events.OrderEventsTopic != "" {
		t.Errorf("expected order events topic unset, got %s", cfg.Events.OrderEventsTopic)
	}
	if cfg.Session.CookieName != defaultSessionCookie {
		t.Errorf("expected default session cookie, got %s", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != defaultSessionTTL {
		t.Errorf("unexpected default session ttl: %s", cfg.Session.TTL)
	}
	if !cfg.Session.Secure {
		t.Error("expected secure session cookie by default")
	}
	if cfg.Checkout.ProofMaxBytes != defaultProofMaxBytes {
		t.Errorf("unexpected default proof size limit: %d", cfg.Checkout.ProofMaxBytes)
	}
	if cfg.Email.FromName != defaultEmailFromName {
		t.Errorf("unexpected default email from name: %s", cfg.Email.FromName)
	}
	if cfg.Prefs.Dir != "" {
		t.Errorf("expected in-memory prefs by default, got dir %s", cfg.Prefs.Dir)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":               "9090",
		"API_SERVER_READ_TIMEOUT":       "20s",
		"API_SERVER_WRITE_TIMEOUT":      "25s",
		"API_SERVER_IDLE_TIMEOUT":       "2m",
		"API_FIREBASE_PROJECT_ID":       "a2h-prod",
		"API_FIRESTORE_PROJECT_ID":      "a2h-fire",
		"API_STORAGE_PROOFS_BUCKET":     "proofs-prod",
		"API_EMAIL_ENDPOINT":            "https://api.resend.com/emails",
		"API_EMAIL_API_KEY":             "secret://email/api-key",
		"API_EMAIL_FROM_ADDRESS":        "orders@a2h.store",
		"API_EMAIL_FROM_NAME":           "A2H Orders",
		"API_EVENTS_PROJECT_ID":         "a2h-events",
		"API_EVENTS_ORDER_TOPIC":        "order-events",
		"API_SESSION_COOKIE_NAME":       "sid",
		"API_SESSION_TTL":               "720h",
		"API_SESSION_SECURE":            "false",
		"API_PREFS_DIR":                 "/var/lib/a2h/prefs",
		"API_CHECKOUT_PROOF_MAX_BYTES":  "1048576",
	}

	secrets := map[string]string{
		"secret://email/api-key": "re_live_key",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Firestore.ProjectID != "a2h-fire" {
		t.Errorf("unexpected firestore project %s", cfg.Firestore.ProjectID)
	}
	if cfg.Email.APIKey != "re_live_key" {
		t.Errorf("expected resolved email api key, got %s", cfg.Email.APIKey)
	}
	if cfg.Email.FromName != "A2H Orders" {
		t.Errorf("unexpected email from name %s", cfg.Email.FromName)
	}
	if cfg.Events.ProjectID != "a2h-events" {
		t.Errorf("unexpected events project %s", cfg.Events.ProjectID)
	}
	if cfg.Events.OrderEventsTopic != "order-events" {
		t.Errorf("unexpected order events topic %s", cfg.Events.OrderEventsTopic)
	}
	if cfg.Session.CookieName != "sid" {
		t.Errorf("unexpected session cookie %s", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != 720*time.Hour {
		t.Errorf("unexpected session ttl %s", cfg.Session.TTL)
	}
	if cfg.Session.Secure {
		t.Error("expected insecure session cookie override")
	}
	if cfg.Prefs.Dir != "/var/lib/a2h/prefs" {
		t.Errorf("unexpected prefs dir %s", cfg.Prefs.Dir)
	}
	if cfg.Checkout.ProofMaxBytes != 1<<20 {
		t.Errorf("unexpected proof size limit %d", cfg.Checkout.ProofMaxBytes)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_FIREBASE_PROJECT_ID=a2h-dot\nAPI_STORAGE_PROOFS_BUCKET=proofs-dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Firebase.ProjectID != "a2h-dot" {
		t.Errorf("expected firebase project from dotenv, got %s", cfg.Firebase.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":   "a2h-dev",
		"API_STORAGE_PROOFS_BUCKET": "proofs",
		"API_EMAIL_API_KEY":         "secret://missing",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_FIREBASE_PROJECT_ID=dot-project\nAPI_SECRET_FALLBACK_FILE=.dot.local\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("API_FIREBASE_PROJECT_ID", "os-project")
	t.Setenv("API_SECRET_PROJECT_IDS", "prod=project-prod")

	overrides := map[string]string{
		"API_FIREBASE_PROJECT_ID": "override-project",
		"API_SECRET_VERSION_PINS": "secret://email/api-key=5",
	}

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["API_FIREBASE_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %s", got)
	}
	if got := values["API_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["API_SECRET_PROJECT_IDS"]; got != "prod=project-prod" {
		t.Fatalf("expected system env project map, got %s", got)
	}
	if got := values["API_SECRET_VERSION_PINS"]; got != "secret://email/api-key=5" {
		t.Fatalf("expected override version pin, got %s", got)
	}
}

func TestLoadMissingRequiredSecrets(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":   "a2h-dev",
		"API_STORAGE_PROOFS_BUCKET": "proofs",
	}

	_, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Email.APIKey"),
	)
	if err == nil {
		t.Fatal("expected missing secrets error, got nil")
	}
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSecretsError, got %T", err)
	}
	expectedRedacted := redactSecretName("Email.APIKey")
	if got := missing.RedactedNames(); len(got) != 1 || got[0] != expectedRedacted {
		t.Fatalf("unexpected redacted names %v", got)
	}
}

func TestLoadMissingRequiredSecretsPanic(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":   "a2h-dev",
		"API_STORAGE_PROOFS_BUCKET": "proofs",
	}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic when required secrets missing")
		}
		missing, ok := rec.(*MissingSecretsError)
		if !ok {
			t.Fatalf("expected MissingSecretsError panic, got %T", rec)
		}
		if len(missing.Names()) != 1 || missing.Names()[0] != "Email.APIKey" {
			t.Fatalf("unexpected missing secrets %v", missing.Names())
		}
	}()

	Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithRequiredSecrets("Email.APIKey"),
		WithPanicOnMissingSecrets(),
	)
}

func TestLoadSupportsLegacySecretScheme(t *testing.T) {
	env := map[string]string{
		"API_FIREBASE_PROJECT_ID":   "a2h-dev",
		"API_STORAGE_PROOFS_BUCKET": "proofs",
		"API_EMAIL_API_KEY":         "sm://email/api-key",
	}

	secrets := map[string]string{
		"secret://email/api-key": "legacy-secret",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", &SecretError{Ref: ref, Err: errors.New("not found")}
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Email.APIKey != "legacy-secret" {
		t.Fatalf("expected legacy secret, got %s", cfg.Email.APIKey)
	}
}
