package demoscanner

// Config holds configuration for the demo scanner service.
type Config struct {
	// Port is the port on which the demo service listens.
	Port int

	// Username and Password accepted by the login endpoint.
	Username string
	Password string

	// SigningKey signs the issued access tokens.
	SigningKey string

	// StatusSteps is how many status polls a scan takes to complete.
	StatusSteps int

	// FindingsDelay is how many findings requests after completion return
	// an empty list before the findings appear. Simulates the window where
	// the service reports completion before findings are durably written.
	FindingsDelay int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:          8090,
		Username:      "demo",
		Password:      "demo",
		SigningKey:    "demo-signing-key",
		StatusSteps:   5,
		FindingsDelay: 2,
	}
}
