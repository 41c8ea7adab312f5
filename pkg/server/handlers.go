package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vctt94/hiddenhand/pkg/ledger"
	"github.com/vctt94/hiddenhand/pkg/poker"
)

// Router builds the HTTP API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.hub.ServeWS)

	r.Route("/tables", func(r chi.Router) {
		r.Post("/", s.handleCreateTable)
		r.Get("/", s.handleListTables)
		r.Route("/{tableID}", func(r chi.Router) {
			r.Get("/", s.handleGetTable)
			r.Post("/join", s.handleJoin)
			r.Post("/leave", s.handleLeave)
			r.Post("/start", s.handleStartHand)
			r.Post("/deal", s.handleDeal)
			r.Post("/shuffle", s.handleRequestShuffle)
			r.Post("/shuffle/callback", s.handleShuffleCallback)
			r.Post("/encrypt", s.handleEncryptHoleCards)
			r.Post("/actions", s.handlePlayerAction)
			r.Post("/showdown", s.handleShowdown)
			r.Post("/reveal", s.handleReveal)
			r.Post("/reveal-community", s.handleRevealCommunity)
			r.Post("/allowances", s.handleGrantAllowance)
			r.Post("/allowances/self", s.handleGrantOwnAllowance)
			r.Post("/allowances/community", s.handleGrantCommunityAllowances)
			r.Post("/timeouts/action", s.handleTimeoutAction)
			r.Post("/timeouts/reveal/{seat}", s.handleTimeoutReveal)
			r.Post("/close", s.handleCloseInactive)
		})
	})

	r.Route("/accounts/{account}", func(r chi.Router) {
		r.Get("/balance", s.handleBalance)
		r.Post("/deposit", s.handleDeposit)
	})

	return r
}

// errorCode maps engine errors to HTTP statuses and stable codes.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, poker.ErrUnauthorizedAuthority),
		errors.Is(err, poker.ErrNotYourSeat),
		errors.Is(err, poker.ErrPlayerNotAtTable):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, poker.ErrNotPlayersTurn):
		return http.StatusConflict, "not_your_turn"
	case errors.Is(err, poker.ErrTimeoutNotReached),
		errors.Is(err, poker.ErrTableStillActive):
		return http.StatusConflict, "timeout_not_reached"
	case errors.Is(err, poker.ErrRaiseTooSmall):
		return http.StatusUnprocessableEntity, "raise_too_small"
	case errors.Is(err, poker.ErrCannotCheck):
		return http.StatusUnprocessableEntity, "cannot_check"
	case errors.Is(err, poker.ErrInvalidBuyIn):
		return http.StatusUnprocessableEntity, "invalid_buy_in"
	case errors.Is(err, poker.ErrInvalidSeat):
		return http.StatusUnprocessableEntity, "invalid_seat"
	case errors.Is(err, poker.ErrAttestationInvalid):
		return http.StatusUnprocessableEntity, "attestation_invalid"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, poker.ErrInvalidPhase),
		errors.Is(err, poker.ErrHandInProgress),
		errors.Is(err, poker.ErrHandNotInProgress),
		errors.Is(err, poker.ErrSeatOccupied),
		errors.Is(err, poker.ErrTableClosed),
		errors.Is(err, poker.ErrAlreadySeated),
		errors.Is(err, poker.ErrNotEnoughPlayers),
		errors.Is(err, poker.ErrLeaveDuringHand),
		errors.Is(err, poker.ErrCardsAlreadyRevealed),
		errors.Is(err, poker.ErrPlayersNotRevealed),
		errors.Is(err, poker.ErrCommunityNotRevealed):
		return http.StatusConflict, "invalid_state"
	default:
		return http.StatusBadRequest, "bad_request"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := errorCode(err)
	s.log.Debugf("request failed (%s): %v", code, err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	tbl, err := s.CreateTable(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tbl)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ListTables())
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	tbl, err := s.GetTable(chi.URLParam(r, "tableID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tbl)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player string `json:"player"`
		Seat   uint8  `json:"seat"`
		BuyIn  uint64 `json:"buyIn"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.Join(chi.URLParam(r, "tableID"), req.Player, req.Seat, req.BuyIn); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint8{"seat": req.Seat})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player string `json:"player"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	chips, err := s.Leave(chi.URLParam(r, "tableID"), req.Player)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"chips": chips})
}

func (s *Server) handleStartHand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.StartHand(chi.URLParam(r, "tableID"), req.Caller); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.Deal(chi.URLParam(r, "tableID"), req.Caller); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRequestShuffle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.RequestShuffle(chi.URLParam(r, "tableID"), req.Caller); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleEncryptHoleCards(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.EncryptHoleCards(chi.URLParam(r, "tableID"), req.Caller); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleShuffleCallback is the webhook a remote VRF oracle posts
// randomness to.
func (s *Server) handleShuffleCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequestID  uint64 `json:"requestId"`
		Randomness string `json:"randomness"` // base64, 32 bytes
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Randomness)
	if err != nil || len(raw) != 32 {
		s.writeError(w, poker.ErrUnknownShuffleRequest)
		return
	}
	var randomness [32]byte
	copy(randomness[:], raw)
	if err := s.HandleShuffleCallback(req.RequestID, randomness); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player string `json:"player"`
		Kind   string `json:"kind"`
		Amount uint64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	var kind poker.ActionKind
	switch req.Kind {
	case "fold":
		kind = poker.Fold
	case "check":
		kind = poker.Check
	case "call":
		kind = poker.Call
	case "raise":
		kind = poker.Raise
	case "all-in":
		kind = poker.AllInBet
	default:
		s.writeError(w, poker.ErrInvalidAction)
		return
	}
	err := s.PlayerAction(chi.URLParam(r, "tableID"), req.Player,
		poker.Action{Kind: kind, Amount: req.Amount})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShowdown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.Showdown(chi.URLParam(r, "tableID"), req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player string `json:"player"`
		Card1  uint8  `json:"card1"`
		Card2  uint8  `json:"card2"`
		Sig1   string `json:"sig1"` // base64
		Sig2   string `json:"sig2"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sig1, err1 := base64.StdEncoding.DecodeString(req.Sig1)
	sig2, err2 := base64.StdEncoding.DecodeString(req.Sig2)
	if err1 != nil || err2 != nil {
		s.writeError(w, poker.ErrAttestationInvalid)
		return
	}
	err := s.RevealCards(chi.URLParam(r, "tableID"), req.Player, req.Card1, req.Card2, sig1, sig2)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevealCommunity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cards []uint8  `json:"cards"`
		Sigs  []string `json:"sigs"` // base64
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sigs := make([][]byte, len(req.Sigs))
	for i, s64 := range req.Sigs {
		sig, err := base64.StdEncoding.DecodeString(s64)
		if err != nil {
			s.writeError(w, poker.ErrAttestationInvalid)
			return
		}
		sigs[i] = sig
	}
	if err := s.RevealCommunity(chi.URLParam(r, "tableID"), req.Cards, sigs); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantAllowance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Seat   uint8  `json:"seat"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.GrantAllowance(chi.URLParam(r, "tableID"), req.Caller, req.Seat); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantOwnAllowance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player string `json:"player"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.GrantOwnAllowance(chi.URLParam(r, "tableID"), req.Player); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantCommunityAllowances(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		Seat   uint8  `json:"seat"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.GrantCommunityAllowances(chi.URLParam(r, "tableID"), req.Caller, req.Seat); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimeoutAction(w http.ResponseWriter, r *http.Request) {
	forced, err := s.TimeoutAction(chi.URLParam(r, "tableID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"forced": forced.Kind.String()})
}

func (s *Server) handleTimeoutReveal(w http.ResponseWriter, r *http.Request) {
	seat, err := strconv.ParseUint(chi.URLParam(r, "seat"), 10, 8)
	if err != nil {
		s.writeError(w, poker.ErrSeatEmpty)
		return
	}
	if err := s.TimeoutReveal(chi.URLParam(r, "tableID"), uint8(seat)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseInactive(w http.ResponseWriter, r *http.Request) {
	if err := s.CloseInactive(chi.URLParam(r, "tableID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.Balance(chi.URLParam(r, "account"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.Deposit(chi.URLParam(r, "account"), req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
