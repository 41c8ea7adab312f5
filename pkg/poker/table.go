package poker

import (
	"time"

	"github.com/decred/slog"
)

// Seating limits.
const (
	MinPlayers = 2
	MaxSeats   = 6
)

// TableStatus is the lifecycle state of a table.
type TableStatus uint8

const (
	// Waiting means the table is between hands.
	Waiting TableStatus = iota
	// TablePlaying means a hand is in progress.
	TablePlaying
	// Closed means the table no longer accepts any operation.
	Closed
)

func (s TableStatus) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case TablePlaying:
		return "playing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Timeouts are the liveness deadlines for a table. Any deadline that
// expires opens the corresponding operation to permissionless callers.
type Timeouts struct {
	// Action is how long a player has to act on their turn.
	Action time.Duration `json:"action"`
	// Start is how long the authority has to start or deal before
	// anyone may do it.
	Start time.Duration `json:"start"`
	// Allowance is how long the authority has to grant decryption
	// allowances before players grant their own.
	Allowance time.Duration `json:"allowance"`
	// Reveal is how long a player has to reveal at showdown before
	// their hand is mucked.
	Reveal time.Duration `json:"reveal"`
	// Inactivity is how long a waiting table may idle before anyone
	// may close it and refund the stacks.
	Inactivity time.Duration `json:"inactivity"`
}

// DefaultTimeouts returns the standard liveness deadlines.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Action:     60 * time.Second,
		Start:      30 * time.Second,
		Allowance:  60 * time.Second,
		Reveal:     180 * time.Second,
		Inactivity: time.Hour,
	}
}

// Config is the immutable setup of a table.
type Config struct {
	TableID    string   `json:"tableId"`
	Authority  string   `json:"authority"`
	SmallBlind uint64   `json:"smallBlind"`
	BigBlind   uint64   `json:"bigBlind"`
	MinBuyIn   uint64   `json:"minBuyIn"`
	MaxBuyIn   uint64   `json:"maxBuyIn"`
	MaxPlayers uint8    `json:"maxPlayers"`
	Timeouts   Timeouts `json:"timeouts"`
}

// Validate checks the config against table creation rules.
func (c *Config) Validate() error {
	if c.TableID == "" || c.Authority == "" {
		return ErrInvalidTableConfig
	}
	if c.MaxPlayers < MinPlayers || c.MaxPlayers > MaxSeats {
		return ErrInvalidMaxPlayers
	}
	if c.SmallBlind == 0 || c.BigBlind < c.SmallBlind {
		return ErrInvalidBlinds
	}
	if c.MinBuyIn > c.MaxBuyIn {
		return ErrInvalidBuyInRange
	}
	// A stack below ten big blinds cannot play meaningful poker.
	if c.MinBuyIn < c.BigBlind*10 {
		return ErrInvalidBuyInRange
	}
	return nil
}

// Table is the full state of one poker table. All exported operations
// work on a deep copy and commit only when every step succeeds, so a
// failed operation leaves the table untouched.
type Table struct {
	Config Config      `json:"config"`
	Status TableStatus `json:"status"`

	CurrentPlayers uint8  `json:"currentPlayers"`
	OccupiedSeats  uint8  `json:"occupiedSeats"` // bitmap, bit i = seat i
	DealerSeat     uint8  `json:"dealerSeat"`
	HandNumber     uint64 `json:"handNumber"`

	// LastReady is when the table last returned to Waiting.
	LastReady time.Time `json:"lastReady"`

	Seats [MaxSeats]*Seat `json:"seats"`
	Hand  *Hand           `json:"hand,omitempty"`
	Deck  *Deck           `json:"deck,omitempty"`

	log slog.Logger
}

// SetLogger attaches a logger for hand lifecycle events. Tables built
// from a persisted snapshot log nothing until one is set.
func (t *Table) SetLogger(l slog.Logger) {
	t.log = l
}

func (t *Table) logger() slog.Logger {
	if t.log == nil {
		return slog.Disabled
	}
	return t.log
}

// NewTable creates a table in the Waiting state.
func NewTable(cfg Config, now time.Time) (*Table, error) {
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = DefaultTimeouts()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Table{
		Config:    cfg,
		Status:    Waiting,
		LastReady: now,
	}, nil
}

// clone deep-copies the table aggregate.
func (t *Table) clone() *Table {
	c := *t
	for i, s := range t.Seats {
		if s != nil {
			cp := *s
			c.Seats[i] = &cp
		}
	}
	if t.Hand != nil {
		h := *t.Hand
		c.Hand = &h
	}
	if t.Deck != nil {
		d := *t.Deck
		c.Deck = &d
	}
	return &c
}

// Snapshot returns a deep copy of the table aggregate. Callers may
// inspect or mutate the copy freely without touching the live table.
func (t *Table) Snapshot() *Table {
	return t.clone()
}

// commit replaces the receiver with a worked copy.
func (t *Table) commit(work *Table) {
	*t = *work
}

func (t *Table) isSeatOccupied(seat uint8) bool {
	return t.OccupiedSeats&(1<<seat) != 0
}

func (t *Table) occupySeat(seat uint8) {
	t.OccupiedSeats |= 1 << seat
	t.CurrentPlayers++
}

func (t *Table) vacateSeat(seat uint8) {
	t.OccupiedSeats &^= 1 << seat
	if t.CurrentPlayers > 0 {
		t.CurrentPlayers--
	}
}

func (t *Table) findEmptySeat() (uint8, bool) {
	for i := uint8(0); i < t.Config.MaxPlayers; i++ {
		if !t.isSeatOccupied(i) {
			return i, true
		}
	}
	return 0, false
}

// nextInMask returns the first seat in the bitmap strictly after the
// given one, wrapping around.
func (t *Table) nextInMask(mask, after uint8) uint8 {
	next := (after + 1) % t.Config.MaxPlayers
	for i := uint8(0); i < t.Config.MaxPlayers; i++ {
		if mask&(1<<next) != 0 {
			return next
		}
		next = (next + 1) % t.Config.MaxPlayers
	}
	return after
}

// readySeats returns the bitmap and count of occupied seats that still
// hold chips. Busted seats sit out until they leave or rebuy.
func (t *Table) readySeats() (uint8, uint8) {
	var mask, count uint8
	for i := uint8(0); i < t.Config.MaxPlayers; i++ {
		if t.isSeatOccupied(i) && t.Seats[i].Chips > 0 {
			mask |= 1 << i
			count++
		}
	}
	return mask, count
}

// SeatByOwner looks up the seat owned by the given player.
func (t *Table) SeatByOwner(owner string) (*Seat, bool) {
	for _, s := range t.Seats {
		if s != nil && s.Owner == owner {
			return s, true
		}
	}
	return nil, false
}

// Join seats a player at the chosen seat with the given buy-in. The
// buy-in is held in table custody until the player leaves or the table
// closes.
func (t *Table) Join(owner string, seat uint8, buyIn uint64) error {
	if t.Status == Closed {
		return ErrTableClosed
	}
	if buyIn < t.Config.MinBuyIn || buyIn > t.Config.MaxBuyIn {
		return ErrInvalidBuyIn
	}
	if seat >= t.Config.MaxPlayers {
		return ErrInvalidSeat
	}
	if _, ok := t.SeatByOwner(owner); ok {
		return ErrAlreadySeated
	}
	if t.isSeatOccupied(seat) {
		return ErrSeatOccupied
	}
	work := t.clone()
	work.Seats[seat] = &Seat{Owner: owner, Index: seat, Chips: buyIn, Status: Sitting}
	work.occupySeat(seat)
	t.commit(work)
	return nil
}

// Leave removes a player between hands and returns the chips owed back
// to them. A busted seat sitting out may leave even while a hand runs;
// anyone with chips in play waits for settlement.
func (t *Table) Leave(owner string) (uint64, error) {
	seat, ok := t.SeatByOwner(owner)
	if !ok {
		return 0, ErrPlayerNotAtTable
	}
	if t.Status == TablePlaying && (seat.Chips > 0 || seat.Status != Sitting) {
		return 0, ErrLeaveDuringHand
	}
	work := t.clone()
	chips := seat.Chips
	work.Seats[seat.Index] = nil
	work.vacateSeat(seat.Index)
	t.commit(work)
	return chips, nil
}

// CloseInactive closes a waiting table that has idled past its
// inactivity deadline. Anyone may call it. Returns the refund owed to
// each remaining player.
func (t *Table) CloseInactive(now time.Time) (map[string]uint64, error) {
	if t.Status != Waiting {
		return nil, ErrHandInProgress
	}
	if now.Sub(t.LastReady) < t.Config.Timeouts.Inactivity {
		return nil, ErrTableStillActive
	}
	work := t.clone()
	refunds := make(map[string]uint64)
	for i, s := range work.Seats {
		if s == nil {
			continue
		}
		if s.Chips > 0 {
			refunds[s.Owner] = s.Chips
		}
		work.Seats[i] = nil
		work.vacateSeat(uint8(i))
	}
	work.Status = Closed
	t.commit(work)
	return refunds, nil
}

// StartHand begins a new hand: bumps the hand counter, advances the
// button, computes blind positions, and creates the hand and deck
// records in the Dealing phase. The authority may start at any time;
// anyone else may start after the start deadline passes, so an absent
// authority cannot strand a ready table.
func (t *Table) StartHand(caller string, now time.Time) error {
	if t.Status == Closed {
		return ErrTableClosed
	}
	if t.Status != Waiting {
		return ErrHandInProgress
	}
	ready, readyCount := t.readySeats()
	if readyCount < MinPlayers {
		return ErrNotEnoughPlayers
	}
	if caller != t.Config.Authority {
		if now.Sub(t.LastReady) < t.Config.Timeouts.Start {
			return ErrTimeoutNotReached
		}
	}

	work := t.clone()
	work.HandNumber++
	work.Status = TablePlaying
	work.DealerSeat = work.nextInMask(ready, work.DealerSeat)

	dealer := work.DealerSeat
	var sb, bb, action uint8
	if readyCount == 2 {
		// Heads-up: the button posts the small blind and acts first
		// before the flop.
		sb = dealer
		bb = work.nextInMask(ready, dealer)
		action = sb
	} else {
		sb = work.nextInMask(ready, dealer)
		bb = work.nextInMask(ready, sb)
		action = work.nextInMask(ready, bb)
	}

	work.Hand = &Hand{
		HandNumber:     work.HandNumber,
		Phase:          Dealing,
		CurrentBet:     work.Config.BigBlind,
		MinRaise:       work.Config.BigBlind,
		DealerSeat:     dealer,
		SmallBlindSeat: sb,
		BigBlindSeat:   bb,
		ActionOn:       action,
		ActiveSeats:    ready,
		ActiveCount:    readyCount,
		LastAction:     now,
		HandStart:      now,
	}
	work.Deck = newDeck()
	t.commit(work)
	t.logger().Debugf("hand %d started: dealer seat %d, blinds on %d/%d, %d in hand",
		t.HandNumber, dealer, sb, bb, readyCount)
	return nil
}
