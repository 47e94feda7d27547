package discovery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mjpeg-relay/internal/platform/logger"
)

// fakeAgent records what the Consul client sends to the agent HTTP API.
type fakeAgent struct {
	mu           sync.Mutex
	registered   map[string]interface{}
	deregistered []string
	failWith     int
}

func (a *fakeAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failWith != 0 {
		w.WriteHeader(a.failWith)
		return
	}

	switch {
	case r.Method == http.MethodPut && r.URL.Path == "/v1/agent/service/register":
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		a.registered = body
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/v1/agent/service/deregister/"):
		a.deregistered = append(a.deregistered, strings.TrimPrefix(r.URL.Path, "/v1/agent/service/deregister/"))
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func newFakeAgent(t *testing.T) (*fakeAgent, string) {
	t.Helper()
	agent := &fakeAgent{}
	srv := httptest.NewServer(agent)
	t.Cleanup(srv.Close)
	return agent, srv.Listener.Addr().String()
}

func TestNewRegistrar_requires_agent(t *testing.T) {
	if _, err := NewRegistrar(Config{}, logger.Discard()); err == nil {
		t.Error("expected error without agent address")
	}
}

func TestNewRegistrar_defaults(t *testing.T) {
	r, err := NewRegistrar(Config{AgentAddr: "127.0.0.1:8500", Address: "10.0.0.5", Port: 8000}, logger.Discard())
	if err != nil {
		t.Fatalf("NewRegistrar: %v", err)
	}
	if !strings.HasPrefix(r.ServiceID(), DefaultServiceName+"-") {
		t.Errorf("expected generated id with service name prefix, got %q", r.ServiceID())
	}
	if r.reg.Check.HTTP != "http://10.0.0.5:8000/" {
		t.Errorf("unexpected check url %q", r.reg.Check.HTTP)
	}
	if r.reg.Check.Interval != "10s" {
		t.Errorf("unexpected check interval %q", r.reg.Check.Interval)
	}
}

func TestRegistrar_Register_Deregister(t *testing.T) {
	agent, addr := newFakeAgent(t)

	r, err := NewRegistrar(Config{
		AgentAddr:     addr,
		ServiceName:   "ai-service",
		ServiceID:     "ai-service-1",
		Address:       "127.0.0.1",
		Port:          8000,
		CheckInterval: 5 * time.Second,
	}, logger.Discard())
	if err != nil {
		t.Fatalf("NewRegistrar: %v", err)
	}

	if err := r.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	agent.mu.Lock()
	got := agent.registered
	agent.mu.Unlock()
	if got["ID"] != "ai-service-1" || got["Name"] != "ai-service" {
		t.Errorf("unexpected registration body: %v", got)
	}
	if got["Port"] != float64(8000) {
		t.Errorf("unexpected port: %v", got["Port"])
	}
	check, _ := got["Check"].(map[string]interface{})
	if check["HTTP"] != "http://127.0.0.1:8000/" || check["Interval"] != "5s" {
		t.Errorf("unexpected check: %v", check)
	}

	if err := r.Deregister(); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	agent.mu.Lock()
	defer agent.mu.Unlock()
	if len(agent.deregistered) != 1 || agent.deregistered[0] != "ai-service-1" {
		t.Errorf("unexpected deregistrations: %v", agent.deregistered)
	}
}

func TestRegistrar_Register_agent_error(t *testing.T) {
	agent, addr := newFakeAgent(t)
	agent.failWith = http.StatusInternalServerError

	r, err := NewRegistrar(Config{AgentAddr: addr, Address: "127.0.0.1", Port: 8000}, logger.Discard())
	if err != nil {
		t.Fatalf("NewRegistrar: %v", err)
	}
	if err := r.Register(); err == nil {
		t.Error("expected error when agent rejects registration")
	}
}
