package poker

import "errors"

// Configuration errors.
var (
	ErrInvalidTableConfig = errors.New("invalid table configuration")
	ErrInvalidBlinds      = errors.New("big blind must be at least the small blind")
	ErrInvalidBuyInRange  = errors.New("buy-in range too small for the blinds")
	ErrInvalidMaxPlayers  = errors.New("max players must be between 2 and 6")
)

// Authorization errors.
var (
	ErrUnauthorizedAuthority = errors.New("caller is not the table authority")
	ErrNotYourSeat           = errors.New("seat is owned by another player")
	ErrPlayerNotAtTable      = errors.New("player is not seated at this table")
)

// State errors.
var (
	ErrTableClosed           = errors.New("table is closed")
	ErrSeatOccupied          = errors.New("seat is already occupied")
	ErrSeatEmpty             = errors.New("seat is empty")
	ErrInvalidSeat           = errors.New("seat index out of range")
	ErrAlreadySeated         = errors.New("player already seated at this table")
	ErrNotEnoughPlayers      = errors.New("not enough players to start a hand")
	ErrHandInProgress        = errors.New("a hand is already in progress")
	ErrHandNotInProgress     = errors.New("no hand in progress")
	ErrInvalidPhase          = errors.New("operation not valid in current phase")
	ErrDeckNotShuffled       = errors.New("deck has not been shuffled")
	ErrDeckAlreadyShuffled   = errors.New("deck is already shuffled")
	ErrCardsAlreadyDealt     = errors.New("seat already has hole cards")
	ErrCardsNotDealt         = errors.New("seat has no hole cards")
	ErrCardsNotEncrypted     = errors.New("hole cards are not encrypted")
	ErrCardsAlreadyRevealed  = errors.New("cards already revealed")
	ErrPlayerNotActive       = errors.New("player is not active in this hand")
	ErrPlayerFolded          = errors.New("player has folded")
	ErrAllowanceNotGranted   = errors.New("decryption allowance not granted")
	ErrAttestationInvalid    = errors.New("covalidator attestation invalid")
	ErrCommunityNotRevealed  = errors.New("community cards not fully revealed")
	ErrPlayersNotRevealed    = errors.New("active players have not revealed cards")
	ErrShuffleNotRequested   = errors.New("no shuffle request pending")
	ErrUnknownShuffleRequest = errors.New("shuffle callback does not match pending request")
)

// Timing errors.
var (
	ErrNotPlayersTurn    = errors.New("not this player's turn")
	ErrTimeoutNotReached = errors.New("timeout has not elapsed")
	ErrTableStillActive  = errors.New("table has recent activity")
)

// Economic errors.
var (
	ErrInvalidBuyIn     = errors.New("buy-in outside table limits")
	ErrInvalidAction    = errors.New("action not valid here")
	ErrCannotCheck      = errors.New("cannot check facing a bet")
	ErrRaiseTooSmall    = errors.New("raise below minimum")
	ErrInsufficientPot  = errors.New("pot accounting mismatch")
	ErrLeaveDuringHand  = errors.New("cannot leave while playing a hand")
	ErrInvalidCard      = errors.New("card value out of range")
	ErrInvalidCardIndex = errors.New("deck exhausted")
)
