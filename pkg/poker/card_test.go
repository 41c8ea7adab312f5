package poker

import "testing"

func TestCardCodec(t *testing.T) {
	cases := []struct {
		card Card
		str  string
		suit uint8
		rank uint8
	}{
		{0, "2h", Hearts, 0},
		{12, "Ah", Hearts, 12},
		{13, "2d", Diamonds, 0},
		{21, "Td", Diamonds, 8},
		{35, "Jc", Clubs, 9},
		{51, "As", Spades, 12},
	}
	for _, tc := range cases {
		if got := tc.card.String(); got != tc.str {
			t.Errorf("card %d: String() = %q, want %q", tc.card, got, tc.str)
		}
		if got := tc.card.Suit(); got != tc.suit {
			t.Errorf("card %d: Suit() = %d, want %d", tc.card, got, tc.suit)
		}
		if got := tc.card.Rank(); got != tc.rank {
			t.Errorf("card %d: Rank() = %d, want %d", tc.card, got, tc.rank)
		}
		back, err := ParseCard(tc.str)
		if err != nil {
			t.Errorf("ParseCard(%q): %v", tc.str, err)
		} else if back != tc.card {
			t.Errorf("ParseCard(%q) = %d, want %d", tc.str, back, tc.card)
		}
	}
}

func TestParseCardRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "A", "1h", "Ax", "10h", "ah"} {
		if _, err := ParseCard(s); err == nil {
			t.Errorf("ParseCard(%q) accepted invalid card", s)
		}
	}
}

func TestCardValid(t *testing.T) {
	if !Card(51).Valid() {
		t.Error("card 51 should be valid")
	}
	if Card(52).Valid() {
		t.Error("card 52 should be invalid")
	}
}
