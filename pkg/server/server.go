package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/vctt94/bisonbotkit/logging"

	"github.com/vctt94/hiddenhand/pkg/ledger"
	"github.com/vctt94/hiddenhand/pkg/poker"
	"github.com/vctt94/hiddenhand/pkg/privacy"
)

// Config wires a Server's dependencies.
type Config struct {
	Store       ledger.Store
	LogBackend  *logging.LogBackend
	Covalidator privacy.Covalidator
	Oracle      privacy.Oracle
	Verifier    *privacy.Verifier

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	// Supervise starts a liveness supervisor for every table.
	Supervise bool

	// DefaultTimeouts, when set, applies to tables created without
	// explicit timeouts.
	DefaultTimeouts *poker.Timeouts
}

// Server owns the tables, persists every committed operation through
// the ledger, and broadcasts events. All table access goes through its
// mutex; the engine itself guarantees all-or-nothing per operation.
type Server struct {
	log        slog.Logger
	gameLog    slog.Logger
	logBackend *logging.LogBackend
	store      ledger.Store
	cova       privacy.Covalidator
	oracle     privacy.Oracle
	verifier   *privacy.Verifier
	clock      func() time.Time
	hub        *Hub

	supervise       bool
	defaultTimeouts *poker.Timeouts

	mu              sync.Mutex
	tables          map[string]*poker.Table
	pendingShuffles map[uint64]string // oracle request id -> table id

	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer builds a server and restores persisted tables.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server requires a ledger store")
	}
	if cfg.LogBackend == nil {
		lb, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: "info"})
		if err != nil {
			return nil, err
		}
		cfg.LogBackend = lb
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Covalidator == nil {
		cfg.Covalidator = privacy.NewLocalCovalidator()
	}
	if cfg.Verifier == nil {
		v, err := privacy.NewVerifier(cfg.Covalidator.PublicKey())
		if err != nil {
			return nil, err
		}
		cfg.Verifier = v
	}

	s := &Server{
		log:             cfg.LogBackend.Logger("SRVR"),
		gameLog:         cfg.LogBackend.Logger("GAME"),
		logBackend:      cfg.LogBackend,
		store:           cfg.Store,
		cova:            cfg.Covalidator,
		oracle:          cfg.Oracle,
		verifier:        cfg.Verifier,
		clock:           cfg.Clock,
		supervise:       cfg.Supervise,
		defaultTimeouts: cfg.DefaultTimeouts,
		hub:             NewHub(cfg.LogBackend.Logger("HUB ")),
		tables:          make(map[string]*poker.Table),
		pendingShuffles: make(map[uint64]string),
		quit:            make(chan struct{}),
	}
	if s.oracle == nil {
		s.oracle = privacy.NewLocalOracle(func(id uint64, r [32]byte) {
			// The local oracle fires inside RequestShuffle while the
			// table lock is held; deliver on a fresh goroutine.
			go s.HandleShuffleCallback(id, r)
		})
	}

	if err := s.restore(); err != nil {
		return nil, err
	}
	if s.supervise {
		for id := range s.tables {
			s.StartSupervisor(id)
		}
	}
	return s, nil
}

// restore loads every persisted table snapshot.
func (s *Server) restore() error {
	snaps, err := s.store.ListSnapshots(ledger.KindTable)
	if err != nil {
		return fmt.Errorf("failed to restore tables: %w", err)
	}
	for _, snap := range snaps {
		var tbl poker.Table
		if err := json.Unmarshal(snap.Data, &tbl); err != nil {
			return fmt.Errorf("corrupt table snapshot %s: %w", snap.Address, err)
		}
		tbl.SetLogger(s.gameLog)
		s.tables[tbl.Config.TableID] = &tbl
		s.log.Infof("restored table %s (%s, %d players)",
			tbl.Config.TableID, tbl.Status, tbl.CurrentPlayers)
	}
	return nil
}

// Stop shuts down background supervisors. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	s.wg.Wait()
}

// Hub exposes the event hub for the HTTP layer.
func (s *Server) Hub() *Hub { return s.hub }

// snapshotWrites builds the ledger writes for a table's current state:
// the aggregate plus per-record audit copies at the seat, hand and deck
// addresses.
func snapshotWrites(t *poker.Table) ([]ledger.Snapshot, error) {
	id := t.Config.TableID
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	writes := []ledger.Snapshot{{Address: ledger.TableAddress(id), Kind: ledger.KindTable, Data: data}}

	for i, seat := range t.Seats {
		addr := ledger.SeatAddress(id, uint8(i))
		if seat == nil {
			writes = append(writes, ledger.Snapshot{Address: addr, Kind: ledger.KindSeat})
			continue
		}
		sd, err := json.Marshal(seat)
		if err != nil {
			return nil, err
		}
		writes = append(writes, ledger.Snapshot{Address: addr, Kind: ledger.KindSeat, Data: sd})
	}
	if t.Hand != nil {
		hd, err := json.Marshal(t.Hand)
		if err != nil {
			return nil, err
		}
		writes = append(writes, ledger.Snapshot{
			Address: ledger.HandAddress(id, t.Hand.HandNumber),
			Kind:    ledger.KindHand, Data: hd,
		})
	}
	if t.Deck != nil {
		dd, err := json.Marshal(t.Deck)
		if err != nil {
			return nil, err
		}
		writes = append(writes, ledger.Snapshot{
			Address: ledger.DeckAddress(id, t.HandNumber),
			Kind:    ledger.KindDeck, Data: dd,
		})
	}
	return writes, nil
}

// persist commits a table's state and any chip transfers in one ledger
// transaction.
func (s *Server) persist(t *poker.Table, transfers []ledger.Transfer) error {
	writes, err := snapshotWrites(t)
	if err != nil {
		return err
	}
	return s.store.Commit(writes, transfers)
}

func (s *Server) table(id string) (*poker.Table, error) {
	t, ok := s.tables[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return t, nil
}

// CreateTableRequest is the input for CreateTable.
type CreateTableRequest struct {
	TableID    string         `json:"tableId,omitempty"`
	Authority  string         `json:"authority"`
	SmallBlind uint64         `json:"smallBlind"`
	BigBlind   uint64         `json:"bigBlind"`
	MinBuyIn   uint64         `json:"minBuyIn"`
	MaxBuyIn   uint64         `json:"maxBuyIn"`
	MaxPlayers uint8          `json:"maxPlayers"`
	Timeouts   poker.Timeouts `json:"timeouts,omitempty"`
}

// CreateTable registers a new table.
func (s *Server) CreateTable(req CreateTableRequest) (*poker.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.TableID == "" {
		req.TableID = uuid.NewString()
	}
	if req.Timeouts == (poker.Timeouts{}) && s.defaultTimeouts != nil {
		req.Timeouts = *s.defaultTimeouts
	}
	if _, ok := s.tables[req.TableID]; ok {
		return nil, poker.ErrInvalidTableConfig
	}
	tbl, err := poker.NewTable(poker.Config{
		TableID:    req.TableID,
		Authority:  req.Authority,
		SmallBlind: req.SmallBlind,
		BigBlind:   req.BigBlind,
		MinBuyIn:   req.MinBuyIn,
		MaxBuyIn:   req.MaxBuyIn,
		MaxPlayers: req.MaxPlayers,
		Timeouts:   req.Timeouts,
	}, s.clock())
	if err != nil {
		return nil, err
	}
	tbl.SetLogger(s.gameLog)
	if err := s.persist(tbl, nil); err != nil {
		return nil, err
	}
	s.tables[req.TableID] = tbl
	if s.supervise {
		s.StartSupervisor(req.TableID)
	}
	s.log.Infof("table %s created by %s (blinds %d/%d)",
		req.TableID, req.Authority, req.SmallBlind, req.BigBlind)
	s.hub.Broadcast(Event{Type: EventTableCreated, TableID: req.TableID})
	return tbl.Snapshot(), nil
}

// ListTables returns snapshots of every table.
func (s *Server) ListTables() []*poker.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*poker.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t.Snapshot())
	}
	return out
}

// GetTable returns a snapshot of one table.
func (s *Server) GetTable(id string) (*poker.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(id)
	if err != nil {
		return nil, err
	}
	return t.Snapshot(), nil
}

// Join seats a player at the chosen seat, moving the buy-in from their
// account into table custody. The seat and the transfer commit together
// or not at all.
func (s *Server) Join(tableID, player string, seat uint8, buyIn uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(tableID)
	if err != nil {
		return err
	}

	work := t.Snapshot()
	if err := work.Join(player, seat, buyIn); err != nil {
		return err
	}
	err = s.persist(work, []ledger.Transfer{{
		From: player, To: ledger.CustodyAccount(tableID),
		Amount: buyIn, Reference: fmt.Sprintf("join table %s seat %d", tableID, seat),
	}})
	if err != nil {
		return err
	}
	s.tables[tableID] = work
	s.log.Infof("player %s joined table %s at seat %d (buy-in %d)", player, tableID, seat, buyIn)
	s.hub.Broadcast(Event{Type: EventPlayerJoined, TableID: tableID, Payload: map[string]interface{}{
		"player": player, "seat": seat,
	}})
	return nil
}

// Leave removes a player and returns their stack from custody.
func (s *Server) Leave(tableID, player string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(tableID)
	if err != nil {
		return 0, err
	}

	work := t.Snapshot()
	chips, err := work.Leave(player)
	if err != nil {
		return 0, err
	}
	var transfers []ledger.Transfer
	if chips > 0 {
		transfers = append(transfers, ledger.Transfer{
			From: ledger.CustodyAccount(tableID), To: player,
			Amount: chips, Reference: fmt.Sprintf("leave table %s", tableID),
		})
	}
	if err := s.persist(work, transfers); err != nil {
		return 0, err
	}
	s.tables[tableID] = work
	s.log.Infof("player %s left table %s with %d chips", player, tableID, chips)
	s.hub.Broadcast(Event{Type: EventPlayerLeft, TableID: tableID, Payload: map[string]interface{}{
		"player": player, "chips": chips,
	}})
	return chips, nil
}

// CloseInactive closes an idle table and refunds every stack.
func (s *Server) CloseInactive(tableID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(tableID)
	if err != nil {
		return err
	}

	work := t.Snapshot()
	refunds, err := work.CloseInactive(s.clock())
	if err != nil {
		return err
	}
	var transfers []ledger.Transfer
	for owner, chips := range refunds {
		transfers = append(transfers, ledger.Transfer{
			From: ledger.CustodyAccount(tableID), To: owner,
			Amount: chips, Reference: fmt.Sprintf("close inactive table %s", tableID),
		})
	}
	if err := s.persist(work, transfers); err != nil {
		return err
	}
	s.tables[tableID] = work
	s.log.Infof("table %s closed for inactivity, %d refunds", tableID, len(transfers))
	s.hub.Broadcast(Event{Type: EventTableClosed, TableID: tableID})
	return nil
}

// mutateTable runs an engine operation against a working copy and
// commits the copy plus its persistence atomically.
func (s *Server) mutateTable(tableID string, op func(*poker.Table) error) error {
	t, err := s.table(tableID)
	if err != nil {
		return err
	}
	work := t.Snapshot()
	if err := op(work); err != nil {
		return err
	}
	if err := s.persist(work, nil); err != nil {
		return err
	}
	s.tables[tableID] = work
	return nil
}

// StartHand starts the next hand on a table.
func (s *Server) StartHand(tableID, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.StartHand(caller, s.clock())
	})
	if err != nil {
		return err
	}
	s.log.Infof("hand started on table %s", tableID)
	s.hub.Broadcast(Event{Type: EventHandStarted, TableID: tableID})
	return nil
}

// Deal shuffles a plaintext deck and deals hole cards.
func (s *Server) Deal(tableID, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.DealCards(caller, uint64(now.UnixNano()), now)
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(Event{Type: EventCardsDealt, TableID: tableID})
	return nil
}

// RequestShuffle starts the encrypted deal through the VRF oracle.
func (s *Server) RequestShuffle(tableID, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.RequestShuffle(caller, s.oracle, s.clock())
	})
	if err != nil {
		return err
	}
	if t, terr := s.table(tableID); terr == nil && t.Hand != nil {
		s.pendingShuffles[t.Hand.ShuffleRequest] = tableID
	}
	s.log.Debugf("shuffle requested for table %s", tableID)
	return nil
}

// HandleShuffleCallback delivers oracle randomness to the waiting
// table: the deck shuffles, cards encrypt, and hole handles deal in one
// committed step.
func (s *Server) HandleShuffleCallback(requestID uint64, randomness [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tableID, ok := s.pendingShuffles[requestID]
	if !ok {
		return poker.ErrUnknownShuffleRequest
	}
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.CallbackShuffle(requestID, randomness, s.cova, s.clock())
	})
	if err != nil {
		s.log.Errorf("shuffle callback failed on table %s: %v", tableID, err)
		return err
	}
	delete(s.pendingShuffles, requestID)
	s.hub.Broadcast(Event{Type: EventCardsDealt, TableID: tableID})
	return nil
}

// EncryptHoleCards swaps plaintext hole cards for covalidator handles
// on a hand that was dealt in the clear.
func (s *Server) EncryptHoleCards(tableID, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateTable(tableID, func(t *poker.Table) error {
		return t.EncryptHoleCards(caller, s.cova)
	})
}

// PlayerAction applies one betting action.
func (s *Server) PlayerAction(tableID, player string, action poker.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.PlayerAction(player, action, s.clock())
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(Event{Type: EventPlayerActed, TableID: tableID, Payload: map[string]interface{}{
		"player": player, "action": action.Kind.String(), "amount": action.Amount,
	}})
	return nil
}

// Showdown settles the hand and broadcasts the audit record.
func (s *Server) Showdown(tableID, caller string) (*poker.HandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result *poker.HandResult
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		var err error
		result, err = t.Showdown(caller, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("hand #%d settled on table %s, pot %d", result.HandNumber, tableID, result.TotalPot)
	s.hub.Broadcast(Event{Type: EventHandCompleted, TableID: tableID, Payload: result})
	return result, nil
}

// RevealCards verifies and applies a hole card reveal.
func (s *Server) RevealCards(tableID, player string, card1, card2 uint8, sig1, sig2 []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.RevealCards(player, card1, card2, sig1, sig2, s.verifier, s.clock())
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(Event{Type: EventCardsRevealed, TableID: tableID, Payload: map[string]interface{}{
		"player": player,
	}})
	return nil
}

// RevealCommunity verifies and applies a board reveal.
func (s *Server) RevealCommunity(tableID string, cards []uint8, sigs [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.RevealCommunity(cards, sigs, s.verifier, s.clock())
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(Event{Type: EventStreetOpened, TableID: tableID})
	return nil
}

// GrantAllowance lets the authority grant a seat its hole allowances.
func (s *Server) GrantAllowance(tableID, caller string, seat uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateTable(tableID, func(t *poker.Table) error {
		return t.GrantCardAllowance(caller, seat, s.cova)
	})
}

// GrantOwnAllowance lets a timed-out player self-grant.
func (s *Server) GrantOwnAllowance(tableID, player string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateTable(tableID, func(t *poker.Table) error {
		return t.GrantOwnAllowance(player, s.cova, s.clock())
	})
}

// GrantCommunityAllowances grants a seat the board allowances.
func (s *Server) GrantCommunityAllowances(tableID, caller string, seat uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateTable(tableID, func(t *poker.Table) error {
		return t.GrantCommunityAllowances(caller, seat, s.cova, s.clock())
	})
}

// TimeoutAction forces a fold or check on the seat that is on the
// clock.
func (s *Server) TimeoutAction(tableID string) (poker.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var forced poker.Action
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		var err error
		forced, err = t.TimeoutPlayer(s.clock())
		return err
	})
	if err != nil {
		return poker.Action{}, err
	}
	s.log.Infof("action timeout on table %s, forced %s", tableID, forced.Kind)
	s.hub.Broadcast(Event{Type: EventPlayerTimeout, TableID: tableID, Payload: map[string]interface{}{
		"forced": forced.Kind.String(),
	}})
	return forced, nil
}

// TimeoutReveal mucks a seat that failed to reveal in time.
func (s *Server) TimeoutReveal(tableID string, seat uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateTable(tableID, func(t *poker.Table) error {
		return t.TimeoutReveal(seat, s.clock())
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(Event{Type: EventPlayerTimeout, TableID: tableID, Payload: map[string]interface{}{
		"mucked": seat,
	}})
	return nil
}

// Deposit credits chips to a player account.
func (s *Server) Deposit(account string, amount uint64) error {
	return s.store.Deposit(account, amount)
}

// Balance reads a player account.
func (s *Server) Balance(account string) (uint64, error) {
	return s.store.Balance(account)
}
