package http

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/radieske/flyby-bet-gateway/internal/gateway/bet"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/catalog"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/dto"
	"github.com/radieske/flyby-bet-gateway/internal/gateway/flow"
	"github.com/radieske/flyby-bet-gateway/pkg/contracts/events"
)

// Server expõe o fluxo transacional por HTTP. Cada sessão tem exatamente
// um passo ativo; os endpoints só delegam para a máquina de fluxo, que é
// quem garante os invariantes.
type Server struct {
	log      *zap.Logger
	sessions *SessionStore
	explorer string // base de URL do explorador para o QR do comprovante
	publ     interface {
		PublishBetPlaced(context.Context, events.BetPlaced) error
	}
}

func NewServer(log *zap.Logger, sessions *SessionStore, explorerBase string, p interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
}) *Server {
	return &Server{log: log, sessions: sessions, explorer: explorerBase, publ: p}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.createSession) // POST
	mux.HandleFunc("/sessions/", s.routeSession) // sub-rotas por sessão
	return mux
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, machine := s.sessions.Create()
	s.log.Info("session created", zap.String("sessionId", id))
	writeJSON(w, sessionView(id, machine))
}

// routeSession resolve /sessions/{id}[/ação]
func (s *Server) routeSession(w http.ResponseWriter, r *http.Request) {
	rest := r.URL.Path[len("/sessions/"):]
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "sessionId required", http.StatusBadRequest)
		return
	}
	machine := s.sessions.Get(id)
	if machine == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		writeJSON(w, sessionView(id, machine))
	case action == "credential" && r.Method == http.MethodPost:
		s.submitCredential(w, r, id, machine)
	case action == "catalog/refresh" && r.Method == http.MethodPost:
		s.refreshCatalog(w, r, machine)
	case action == "pools" && r.Method == http.MethodGet:
		writeJSON(w, poolViews(machine.Catalog()))
	case action == "pool" && r.Method == http.MethodPost:
		s.selectPool(w, r, machine)
	case action == "option" && r.Method == http.MethodPost:
		s.selectOption(w, r, machine)
	case action == "bets" && r.Method == http.MethodPost:
		s.placeBet(w, r, id, machine)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) submitCredential(w http.ResponseWriter, r *http.Request, id string, m *flow.Machine) {
	var req dto.SubmitCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := m.SubmitCredential(req.WIF); err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, sessionView(id, m))
}

func (s *Server) refreshCatalog(w http.ResponseWriter, r *http.Request, m *flow.Machine) {
	pools, err := m.RefreshCatalog(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, poolViews(pools))
}

func (s *Server) selectPool(w http.ResponseWriter, r *http.Request, m *flow.Machine) {
	var req dto.SelectPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	id, err := hex.DecodeString(req.PoolID)
	if err != nil {
		http.Error(w, "poolId must be hex", http.StatusBadRequest)
		return
	}
	if err := m.SelectPool(id); err != nil {
		writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectOption(w http.ResponseWriter, r *http.Request, m *flow.Machine) {
	var req dto.SelectOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := m.SelectOption(req.Label); err != nil {
		writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request, id string, m *flow.Machine) {
	pool, _ := m.Selection()
	confirmation, err := m.PlaceBet(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}

	// Publica evento bet_placed para o pipeline de auditoria
	placed := events.BetPlaced{
		SessionID: id,
		Address:   confirmation.Address,
		PoolName:  confirmation.PoolName,
		Option:    confirmation.Option,
		TxID:      confirmation.TxID,
	}
	if pool != nil {
		placed.PoolID = hex.EncodeToString(pool.ID)
	}
	if err := s.publ.PublishBetPlaced(r.Context(), placed); err != nil {
		s.log.Error("publish bet_placed", zap.Error(err))
	}

	writeJSON(w, dto.ConfirmationView{
		Address:   confirmation.Address,
		PoolName:  confirmation.PoolName,
		Option:    confirmation.Option,
		TxID:      confirmation.TxID,
		QRCodePNG: s.txQRCode(confirmation.TxID),
	})
}

// txQRCode gera QR code em base64 com o link do explorador para o txid.
// Falha aqui não é falha da aposta: o campo simplesmente fica vazio.
func (s *Server) txQRCode(txID string) string {
	if s.explorer == "" {
		return ""
	}
	png, err := qrcode.Encode(s.explorer+txID, qrcode.Medium, 256)
	if err != nil {
		s.log.Warn("qr encode", zap.Error(err))
		return ""
	}
	return base64.StdEncoding.EncodeToString(png)
}

// --- helpers ---

func sessionView(id string, m *flow.Machine) dto.SessionResponse {
	resp := dto.SessionResponse{
		SessionID: id,
		State:     m.State().String(),
		Address:   m.Address(),
	}
	if err := m.LastError(); err != nil {
		resp.Error = err.Error()
	}
	if pool, option := m.Selection(); pool != nil {
		resp.SelectedPool = pool.Name
		if option != nil {
			resp.SelectedOption = option.Label
		}
	}
	if c := m.Confirmation(); c != nil {
		resp.Confirmation = &dto.ConfirmationView{
			Address:  c.Address,
			PoolName: c.PoolName,
			Option:   c.Option,
			TxID:     c.TxID,
		}
	}
	return resp
}

func poolViews(pools []catalog.Pool) []dto.PoolView {
	out := make([]dto.PoolView, 0, len(pools))
	for _, p := range pools {
		pv := dto.PoolView{
			ID:      hex.EncodeToString(p.ID),
			Name:    p.Name,
			Options: make([]dto.OptionView, 0, len(p.Options)),
		}
		for _, o := range p.Options {
			pv.Options = append(pv.Options, dto.OptionView{
				ID:    hex.EncodeToString(o.ID),
				Label: o.Label,
			})
		}
		out = append(out, pv)
	}
	return out
}

// writeFlowError mapeia o taxonomia de erros do fluxo para status HTTP.
// Cada tipo de erro tem exatamente um slot de mensagem; nada é engolido.
func writeFlowError(w http.ResponseWriter, err error) {
	var fetchErr *catalog.FetchError
	var decodeErr *catalog.DecodeError
	var buildErr *bet.BuildError

	switch {
	case errors.Is(err, flow.ErrInvalidCredential):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, flow.ErrBetInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, flow.ErrSessionDone):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, flow.ErrNotSelecting),
		errors.Is(err, flow.ErrNoSelection),
		errors.Is(err, flow.ErrUnknownPool),
		errors.Is(err, flow.ErrUnknownOption):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &fetchErr), errors.As(err, &decodeErr), errors.As(err, &buildErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
