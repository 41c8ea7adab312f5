package poker

import (
	"fmt"
	"time"

	"github.com/vctt94/hiddenhand/pkg/privacy"
)

// RequestShuffle asks the VRF oracle for shuffle randomness and records
// the pending request. The deck stays unshuffled until CallbackShuffle
// delivers the randomness. The authority may request at any time;
// anyone else after the start deadline.
func (t *Table) RequestShuffle(caller string, oracle privacy.Oracle, now time.Time) error {
	if err := t.checkDealable(caller, now); err != nil {
		return err
	}
	if t.Hand.ShuffleRequest != 0 {
		return ErrShuffleNotRequested
	}
	id, err := oracle.RequestRandomness()
	if err != nil {
		return fmt.Errorf("shuffle request failed: %w", err)
	}
	work := t.clone()
	work.Hand.ShuffleRequest = id
	t.commit(work)
	return nil
}

// CallbackShuffle receives oracle randomness for a pending shuffle
// request, derives the deck permutation, encrypts every card through
// the covalidator, deals hole card handles and posts the blinds. The
// clear randomness is never stored; only the resulting handles persist.
func (t *Table) CallbackShuffle(requestID uint64, randomness [32]byte, cova privacy.Covalidator, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if t.Hand.Phase != Dealing {
		return ErrInvalidPhase
	}
	if t.Deck.IsShuffled {
		return ErrDeckAlreadyShuffled
	}
	if t.Hand.ShuffleRequest == 0 {
		return ErrShuffleNotRequested
	}
	if t.Hand.ShuffleRequest != requestID {
		return ErrUnknownShuffleRequest
	}

	work := t.clone()
	perm := privacy.ShufflePermutation(randomness)
	if err := work.Deck.install(perm, func(v uint8) (privacy.CardSlot, error) {
		h, err := cova.Encrypt(v)
		if err != nil {
			return privacy.CardSlot{}, fmt.Errorf("card encryption failed: %w", err)
		}
		return privacy.EncryptedSlot(h), nil
	}); err != nil {
		return err
	}
	if err := work.dealAndPostBlinds(now); err != nil {
		return err
	}
	work.Hand.ShuffleRequest = 0
	t.commit(work)
	return nil
}

// EncryptHoleCards converts plaintext hole cards into covalidator
// handles. Used when a trusted runtime dealt in the clear and the hand
// must become private before play continues.
func (t *Table) EncryptHoleCards(caller string, cova privacy.Covalidator) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if caller != t.Config.Authority {
		return ErrUnauthorizedAuthority
	}
	work := t.clone()
	for i, s := range work.Seats {
		if s == nil || !work.Hand.isSeatActive(uint8(i)) {
			continue
		}
		for c := 0; c < 2; c++ {
			slot := s.HoleCards[c]
			if !slot.IsDealt() {
				return ErrCardsNotDealt
			}
			if slot.State != privacy.SlotPlaintext {
				continue
			}
			h, err := cova.Encrypt(slot.Value)
			if err != nil {
				return fmt.Errorf("card encryption failed: %w", err)
			}
			s.HoleCards[c] = privacy.EncryptedSlot(h)
		}
	}
	t.commit(work)
	return nil
}

// GrantCardAllowance lets the authority grant a seat's owner the
// decryption allowances for both of that seat's hole cards.
func (t *Table) GrantCardAllowance(caller string, seatIdx uint8, cova privacy.Covalidator) error {
	if caller != t.Config.Authority {
		return ErrUnauthorizedAuthority
	}
	return t.grantHoleAllowances(seatIdx, cova)
}

// GrantOwnAllowance lets a player grant themselves the allowances for
// their own hole cards once the allowance deadline has passed without
// the authority acting. Keeps the hand alive under an absent authority.
func (t *Table) GrantOwnAllowance(player string, cova privacy.Covalidator, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if t.Hand.Phase == Dealing {
		return ErrInvalidPhase
	}
	seat, ok := t.SeatByOwner(player)
	if !ok {
		return ErrPlayerNotAtTable
	}
	if seat.Status != Playing && seat.Status != AllIn {
		return ErrPlayerNotActive
	}
	if now.Sub(t.Hand.LastAction) < t.Config.Timeouts.Allowance {
		return ErrTimeoutNotReached
	}
	return t.grantHoleAllowances(seat.Index, cova)
}

func (t *Table) grantHoleAllowances(seatIdx uint8, cova privacy.Covalidator) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if seatIdx >= t.Config.MaxPlayers || t.Seats[seatIdx] == nil {
		return ErrSeatEmpty
	}
	seat := t.Seats[seatIdx]
	for c := 0; c < 2; c++ {
		if seat.HoleCards[c].State != privacy.SlotEncrypted {
			return ErrCardsNotEncrypted
		}
	}
	work := t.clone()
	ws := work.Seats[seatIdx]
	for c := 0; c < 2; c++ {
		if err := cova.GrantAllowance(ws.HoleCards[c].Handle, ws.Owner); err != nil {
			return fmt.Errorf("allowance grant failed: %w", err)
		}
	}
	work.Hand.AllowanceSeats |= 1 << seatIdx
	t.commit(work)
	return nil
}

// GrantCommunityAllowances grants a seat's owner decryption allowances
// for the five board slots, so players can learn the streets when the
// authority goes missing. Authority immediately, anyone for their own
// seat after the allowance deadline.
func (t *Table) GrantCommunityAllowances(caller string, seatIdx uint8, cova privacy.Covalidator, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if seatIdx >= t.Config.MaxPlayers || t.Seats[seatIdx] == nil {
		return ErrSeatEmpty
	}
	seat := t.Seats[seatIdx]
	if caller != t.Config.Authority {
		if caller != seat.Owner {
			return ErrNotYourSeat
		}
		if now.Sub(t.Hand.LastAction) < t.Config.Timeouts.Allowance {
			return ErrTimeoutNotReached
		}
	}
	if !t.Deck.IsShuffled {
		return ErrDeckNotShuffled
	}
	work := t.clone()
	for i := 0; i < communityReserved; i++ {
		slot := work.Deck.communitySlot(i)
		if slot.State != privacy.SlotEncrypted {
			continue
		}
		if err := cova.GrantAllowance(slot.Handle, seat.Owner); err != nil {
			return fmt.Errorf("allowance grant failed: %w", err)
		}
	}
	work.Hand.CommunityAllowanceSeats |= 1 << seatIdx
	t.commit(work)
	return nil
}

// AreAllowancesGranted reports whether every active seat holds the
// allowances for both of its hole cards. Clients must not decrypt
// before this turns true, so nobody sees cards while another seat is
// still blind.
func (t *Table) AreAllowancesGranted() bool {
	if t.Hand == nil {
		return false
	}
	return t.Hand.ActiveSeats & ^t.Hand.AllowanceSeats == 0
}

// RevealCards publishes a player's hole cards at showdown. Each card
// carries a covalidator attestation binding the encrypted handle to the
// claimed plaintext; an invalid attestation rejects the reveal.
func (t *Table) RevealCards(player string, card1, card2 uint8, sig1, sig2 []byte, verifier *privacy.Verifier, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	if t.Hand.Phase != Showdown {
		return ErrInvalidPhase
	}
	seat, ok := t.SeatByOwner(player)
	if !ok {
		return ErrPlayerNotAtTable
	}
	if seat.Status != Playing && seat.Status != AllIn {
		return ErrPlayerNotActive
	}
	if seat.CardsRevealed {
		return ErrCardsAlreadyRevealed
	}
	if card1 >= NumCards || card2 >= NumCards {
		return ErrInvalidCard
	}
	for c := 0; c < 2; c++ {
		if seat.HoleCards[c].State != privacy.SlotEncrypted {
			return ErrCardsNotEncrypted
		}
	}
	if err := verifier.VerifyAttestation(seat.HoleCards[0].Handle, card1, sig1); err != nil {
		return fmt.Errorf("%w: card 1: %v", ErrAttestationInvalid, err)
	}
	if err := verifier.VerifyAttestation(seat.HoleCards[1].Handle, card2, sig2); err != nil {
		return fmt.Errorf("%w: card 2: %v", ErrAttestationInvalid, err)
	}

	work := t.clone()
	ws := work.Seats[seat.Index]
	ws.HoleCards[0] = privacy.PlaintextSlot(card1)
	ws.HoleCards[1] = privacy.PlaintextSlot(card2)
	ws.CardsRevealed = true
	work.Hand.LastAction = now
	t.commit(work)
	return nil
}

// RevealCommunity publishes the plaintext values of board slots that
// have been opened but are still encrypted. Values arrive in board
// order for every opened, unrevealed slot, each with its attestation.
func (t *Table) RevealCommunity(cards []uint8, sigs [][]byte, verifier *privacy.Verifier, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	h := t.Hand
	if h.Phase == Dealing || h.Phase == Settled {
		return ErrInvalidPhase
	}
	if len(cards) != len(sigs) {
		return ErrInvalidAction
	}

	var pending []int
	for i := 0; i < int(h.CommunityRevealed); i++ {
		if h.Community[i].State == privacy.SlotEncrypted {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 || len(cards) != len(pending) {
		return ErrInvalidAction
	}

	work := t.clone()
	for n, idx := range pending {
		if cards[n] >= NumCards {
			return ErrInvalidCard
		}
		handle := work.Hand.Community[idx].Handle
		if err := verifier.VerifyAttestation(handle, cards[n], sigs[n]); err != nil {
			return fmt.Errorf("%w: board slot %d: %v", ErrAttestationInvalid, idx, err)
		}
		work.Hand.Community[idx] = privacy.PlaintextSlot(cards[n])
		work.Deck.Cards[idx] = work.Hand.Community[idx]
	}
	t.commit(work)
	return nil
}

// TimeoutReveal mucks a seat that failed to reveal within the reveal
// deadline at showdown. The seat folds and forfeits its claim on the
// pot. Anyone may call it.
func (t *Table) TimeoutReveal(seatIdx uint8, now time.Time) error {
	if t.Status != TablePlaying || t.Hand == nil {
		return ErrHandNotInProgress
	}
	h := t.Hand
	if h.Phase != Showdown {
		return ErrInvalidPhase
	}
	if seatIdx >= t.Config.MaxPlayers || t.Seats[seatIdx] == nil {
		return ErrSeatEmpty
	}
	seat := t.Seats[seatIdx]
	if !h.isSeatActive(seatIdx) {
		return ErrPlayerNotActive
	}
	if seat.CardsRevealed {
		return ErrCardsAlreadyRevealed
	}
	if now.Sub(h.LastAction) < t.Config.Timeouts.Reveal {
		return ErrTimeoutNotReached
	}

	work := t.clone()
	work.Seats[seatIdx].fold()
	work.Hand.foldSeat(seatIdx)
	t.commit(work)
	return nil
}
