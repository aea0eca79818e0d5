package app

// Global config object, set by main.go
var Config struct {
	// URL where the coordinator can be reached.
	// This is what fabricctl and other remote clients should talk to.
	CoordinatorURL string
	// Directory where per-deployment workspaces and uploaded models live.
	DataDir string
	// Optional instance ID.
	// If set, the sqlite database is suffixed with this name so that several
	// coordinators can share a working directory.
	InstanceID string
}
