package dispatch

import (
	"fmt"

	"agentcoord/internal/coordinator"
	"agentcoord/pkg/config"
	asynqdispatch "agentcoord/pkg/dispatch/asynq"
	"agentcoord/pkg/dispatch/direct"
)

// CreateDispatcher creates the assignment dispatcher for the configured provider
func CreateDispatcher(cfg *config.Config, providerType string) (coordinator.Dispatcher, error) {
	switch providerType {
	case "direct", "":
		return direct.NewDispatcher(), nil
	case "asynq":
		return asynqdispatch.NewDispatcher(cfg)
	default:
		return nil, fmt.Errorf("unsupported dispatch provider type: %s", providerType)
	}
}
