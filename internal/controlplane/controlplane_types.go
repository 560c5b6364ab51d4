package controlplane

// Config contains configuration for the control plane server
type Config struct {
	Addr      string // Address to bind the control plane server
	AuthToken string // Access token for the control plane server
	RateLimit string // Per-client request rate, e.g. "20-S". Empty disables limiting.
}
