package http

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/radieske/flyby-bet-gateway/internal/gateway/flow"
)

// SessionStore guarda as máquinas de fluxo em memória. Estado de sessão
// não é persistido: derrubar o processo encerra as sessões (por design do
// fluxo, que é descartável e recomeçável).
type SessionStore struct {
	mu sync.RWMutex
	m  map[string]*flow.Machine

	newMachine func() *flow.Machine
}

func NewSessionStore(factory func() *flow.Machine) *SessionStore {
	return &SessionStore{
		m:          make(map[string]*flow.Machine),
		newMachine: factory,
	}
}

// Create abre uma sessão nova em AwaitingCredential.
func (s *SessionStore) Create() (string, *flow.Machine) {
	id := newSessionID()
	machine := s.newMachine()
	s.mu.Lock()
	s.m[id] = machine
	s.mu.Unlock()
	return id, machine
}

// Get retorna a máquina da sessão, ou nil se não existir.
func (s *SessionStore) Get(id string) *flow.Machine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[id]
}

func newSessionID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
