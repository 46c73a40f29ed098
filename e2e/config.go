package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL is the chatd WebSocket endpoint; the suites skip when empty
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	HTTPURL   string `envconfig:"E2E_HTTP_URL" default:"http://localhost:8080"`
	GrpcAddr  string `envconfig:"E2E_GRPC_ADDR" default:"localhost:9090"`
	// E2E_DEBUG_JSON allows dumping full gRPC request/response bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
