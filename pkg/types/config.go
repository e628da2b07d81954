package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"300"` // covers a full bulk import

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Auth Configuration
	CookieName       string `envconfig:"SESSION_COOKIE_NAME" default:"campaid_session"`
	SessionMaxAgeSec int    `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Offline queue
	DraftStorePath          string `envconfig:"DRAFT_STORE_PATH" default:"./data/drafts"`
	ConnectivityIntervalSec uint   `envconfig:"CONNECTIVITY_INTERVAL_SEC" default:"15"`
	ConnectivityTimeoutSec  uint   `envconfig:"CONNECTIVITY_TIMEOUT_SEC" default:"3"`
	AutoUploadDrafts        bool   `envconfig:"AUTO_UPLOAD_DRAFTS" default:"true"`

	// Bulk import
	DelegateMatchThreshold float64 `envconfig:"DELEGATE_MATCH_THRESHOLD" default:"0.65"`

	// Report builder
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	// Backups go to S3 when BackupBucket is set, otherwise Supabase Storage when configured
	BackupBucket         string `envconfig:"BACKUP_BUCKET"`
	SupabaseProjectID    string `envconfig:"SUPABASE_PROJECT_ID"`
	SupabaseAPIKey       string `envconfig:"SUPABASE_API_KEY"`
	SupabaseBackupBucket string `envconfig:"SUPABASE_BACKUP_BUCKET" default:"backups"`
}
