package privacy

import (
	"encoding/json"
	"fmt"
)

// SlotState describes what a card slot currently holds.
type SlotState uint8

const (
	// SlotUndealt means no card has been assigned to the slot yet.
	SlotUndealt SlotState = iota
	// SlotEncrypted means the slot holds an encrypted handle only.
	SlotEncrypted
	// SlotPlaintext means the slot holds a publicly known card value.
	SlotPlaintext
)

// CardSlot is a tagged holder for a single card position. It is either
// undealt, an encrypted handle, or a revealed plaintext value in 0..51.
type CardSlot struct {
	State SlotState
	// Handle is valid only when State == SlotEncrypted.
	Handle Handle
	// Value is valid only when State == SlotPlaintext.
	Value uint8
}

// UndealtSlot returns an empty slot.
func UndealtSlot() CardSlot {
	return CardSlot{State: SlotUndealt}
}

// EncryptedSlot returns a slot holding an encrypted handle.
func EncryptedSlot(h Handle) CardSlot {
	return CardSlot{State: SlotEncrypted, Handle: h}
}

// PlaintextSlot returns a slot holding a revealed card value.
func PlaintextSlot(value uint8) CardSlot {
	return CardSlot{State: SlotPlaintext, Value: value}
}

// IsDealt reports whether the slot holds anything at all.
func (c CardSlot) IsDealt() bool {
	return c.State != SlotUndealt
}

// IsRevealed reports whether the slot holds a plaintext value.
func (c CardSlot) IsRevealed() bool {
	return c.State == SlotPlaintext
}

func (c CardSlot) String() string {
	switch c.State {
	case SlotEncrypted:
		return "enc:" + c.Handle.String()
	case SlotPlaintext:
		return fmt.Sprintf("card:%d", c.Value)
	default:
		return "undealt"
	}
}

type cardSlotJSON struct {
	State  string  `json:"state"`
	Handle *Handle `json:"handle,omitempty"`
	Value  *uint8  `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c CardSlot) MarshalJSON() ([]byte, error) {
	out := cardSlotJSON{}
	switch c.State {
	case SlotUndealt:
		out.State = "undealt"
	case SlotEncrypted:
		out.State = "encrypted"
		h := c.Handle
		out.Handle = &h
	case SlotPlaintext:
		out.State = "plaintext"
		v := c.Value
		out.Value = &v
	default:
		return nil, fmt.Errorf("unknown slot state %d", c.State)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CardSlot) UnmarshalJSON(data []byte) error {
	var in cardSlotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.State {
	case "undealt":
		*c = UndealtSlot()
	case "encrypted":
		if in.Handle == nil {
			return fmt.Errorf("encrypted slot missing handle")
		}
		*c = EncryptedSlot(*in.Handle)
	case "plaintext":
		if in.Value == nil {
			return fmt.Errorf("plaintext slot missing value")
		}
		*c = PlaintextSlot(*in.Value)
	default:
		return fmt.Errorf("unknown slot state %q", in.State)
	}
	return nil
}
