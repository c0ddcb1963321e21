package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Used to build password reset links sent by email
	AppName  string `envconfig:"APP_NAME" default:"alignlab"`
	FrontURL string `envconfig:"FRONT_URL" default:"http://localhost:3000"`

	// Token signing key
	// openssl rand -base64 32
	// to generate a value
	TokenSecret   string `envconfig:"TOKEN_SECRET"`
	TokenTTLHours uint   `envconfig:"TOKEN_TTL_HOURS" default:"24"`

	// Object storage
	S3BucketName string `envconfig:"S3_BUCKET_NAME"`

	// Outbound SMTP
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"no-reply@alignlab.local"`

	// Initial admin account, consumed by the seed command
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	AdminFullName string `envconfig:"ADMIN_FULL_NAME" default:"Lab Administrator"`
}
