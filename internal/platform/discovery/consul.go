// Package discovery registers the relay with a Consul agent. The relay
// serves traffic whether or not registration succeeds.
package discovery

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
)

// DefaultServiceName is the name the dashboard gateway resolves.
const DefaultServiceName = "ai-service"

// Config describes how the service announces itself.
type Config struct {
	AgentAddr     string // host:port of the Consul agent
	ServiceName   string
	ServiceID     string // generated from ServiceName when empty
	Address       string // address other services reach us on
	Port          int
	CheckPath     string // defaults to "/"
	CheckInterval time.Duration
}

// Registrar owns one service registration.
type Registrar struct {
	agent *api.Agent
	reg   *api.AgentServiceRegistration
	log   *slog.Logger
}

// NewRegistrar builds a Consul client for cfg.AgentAddr. It does not contact
// the agent; that happens in Register.
func NewRegistrar(cfg Config, log *slog.Logger) (*Registrar, error) {
	if cfg.AgentAddr == "" {
		return nil, fmt.Errorf("discovery: agent address is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.ServiceID == "" {
		cfg.ServiceID = cfg.ServiceName + "-" + uuid.NewString()
	}
	if cfg.CheckPath == "" {
		cfg.CheckPath = "/"
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 10 * time.Second
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Address = cfg.AgentAddr
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: consul client: %w", err)
	}

	checkURL := "http://" + cfg.Address + ":" + strconv.Itoa(cfg.Port) + cfg.CheckPath
	return &Registrar{
		agent: client.Agent(),
		reg: &api.AgentServiceRegistration{
			ID:      cfg.ServiceID,
			Name:    cfg.ServiceName,
			Address: cfg.Address,
			Port:    cfg.Port,
			Check: &api.AgentServiceCheck{
				HTTP:     checkURL,
				Interval: cfg.CheckInterval.String(),
			},
		},
		log: log,
	}, nil
}

// ServiceID returns the id the service is registered under.
func (r *Registrar) ServiceID() string {
	return r.reg.ID
}

// Register announces the service and its HTTP health check.
func (r *Registrar) Register() error {
	if err := r.agent.ServiceRegister(r.reg); err != nil {
		return fmt.Errorf("discovery: register %s: %w", r.reg.ID, err)
	}
	r.log.Info("registered with consul",
		slog.String("service", r.reg.Name),
		slog.String("service_id", r.reg.ID),
		slog.String("check", r.reg.Check.HTTP))
	return nil
}

// Deregister removes the registration made by Register.
func (r *Registrar) Deregister() error {
	if err := r.agent.ServiceDeregister(r.reg.ID); err != nil {
		return fmt.Errorf("discovery: deregister %s: %w", r.reg.ID, err)
	}
	r.log.Info("deregistered from consul", slog.String("service_id", r.reg.ID))
	return nil
}
