package secrets

// Config holds configuration for credential sealing.
type Config struct {
	// Key is the base64-encoded 32-byte key used to seal server passwords
	// at rest. Generate one with the keygen command.
	Key string `mapstructure:"key" default:""`
}
