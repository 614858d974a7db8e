package supervisor

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/agent"
	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
)

// ErrStopped is returned by AddDevice after Stop.
var ErrStopped = errors.New("supervisor stopped")

// Supervisor owns one agent per device host. An agent that dies is not
// restarted here; the next SSDP sighting of the device re-admits it.
type Supervisor struct {
	cfg agent.Config
	log *logrus.Entry

	mu       sync.Mutex
	agents   map[string]*agent.Agent
	stopping bool
}

func New(cfg agent.Config) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		log:    logrus.WithField("component", "supervisor"),
		agents: make(map[string]*agent.Agent),
	}
}

// AddDevice starts an agent for the device at ip described by root. A
// second add for a host with a live agent fails with ErrAlreadyRegistered.
func (s *Supervisor) AddDevice(ctx context.Context, ip net.IP, root *upnp.RootDescription) error {
	host := ip.String()

	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		return ErrStopped
	}
	if _, exists := s.agents[host]; exists {
		s.mu.Unlock()
		return apperrors.ErrAlreadyRegistered
	}
	a := agent.New(s.cfg, ip, root)
	s.agents[host] = a
	s.mu.Unlock()

	if err := a.Start(ctx); err != nil {
		s.remove(host, a)
		return err
	}

	go s.watch(host, a)
	return nil
}

// Live reports whether a running agent exists for host.
func (s *Supervisor) Live(host string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.agents[host]
	return ok
}

// Agents returns the currently running agents.
func (s *Supervisor) Agents() []*agent.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*agent.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	return out
}

// Stop shuts every agent down and waits for them to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopping = true
	agents := make([]*agent.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		agents = append(agents, a)
	}
	s.mu.Unlock()

	for _, a := range agents {
		a.Stop()
	}
	for _, a := range agents {
		<-a.Done()
	}
}

// watch reclaims the host slot when its agent exits. Registry and pubsub
// entries are released by the agent itself on the way out.
func (s *Supervisor) watch(host string, a *agent.Agent) {
	<-a.Done()
	s.remove(host, a)
	if err := a.Err(); err != nil {
		s.log.WithError(err).WithField("host", host).Warn("agent died")
	}
}

func (s *Supervisor) remove(host string, a *agent.Agent) {
	s.mu.Lock()
	if s.agents[host] == a {
		delete(s.agents, host)
	}
	s.mu.Unlock()
}
