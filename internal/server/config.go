package server

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// AllowedOrigins configures CORS for the browser dashboard. Empty
	// allows any origin, which suits local development.
	AllowedOrigins []string
}
