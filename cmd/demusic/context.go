package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"demusic/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// baseURL resolves the daemon API address: the --server flag wins, then the
// configured bind address, then the compiled-in default.
func (c *commandContext) baseURL() string {
	if c.serverFlag != nil {
		if flag := strings.TrimSpace(*c.serverFlag); flag != "" {
			return normalizeBaseURL(flag)
		}
	}
	cfg, err := c.ensureConfig()
	if err == nil && cfg != nil && strings.TrimSpace(cfg.Paths.APIBind) != "" {
		return normalizeBaseURL(cfg.Paths.APIBind)
	}
	return "http://127.0.0.1:7465"
}

func normalizeBaseURL(addr string) string {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	// Bind addresses like ":7465" need a dialable host.
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.baseURL())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
