package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/bisonbotkit/logging"

	"github.com/vctt94/hiddenhand/pkg/ledger"
	"github.com/vctt94/hiddenhand/pkg/poker"
	"github.com/vctt94/hiddenhand/pkg/privacy"
)

// createTestLogBackend builds a quiet LogBackend for tests.
func createTestLogBackend(t *testing.T) *logging.LogBackend {
	t.Helper()
	lb, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:        "",
		DebugLevel:     "error",
		MaxLogFiles:    1,
		MaxBufferLines: 100,
	})
	require.NoError(t, err)
	t.Cleanup(func() { lb.Close() })
	return lb
}

// testClock is an injectable clock tests advance by hand.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// testEnv bundles a server with its store, clock and a capturing oracle
// so tests can deliver shuffle randomness deterministically.
type testEnv struct {
	srv    *Server
	store  *ledger.MemoryStore
	clock  *testClock
	lastID uint64
	lastR  [32]byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: ledger.NewMemoryStore(),
		clock: &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	oracle := privacy.NewLocalOracle(func(id uint64, r [32]byte) {
		env.lastID = id
		env.lastR = r
	})
	srv, err := NewServer(Config{
		Store:      env.store,
		LogBackend: createTestLogBackend(t),
		Oracle:     oracle,
		Clock:      env.clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Stop)
	env.srv = srv
	return env
}

func testTableRequest(id string) CreateTableRequest {
	return CreateTableRequest{
		TableID:    id,
		Authority:  "authority",
		SmallBlind: 10,
		BigBlind:   20,
		MinBuyIn:   200,
		MaxBuyIn:   2000,
		MaxPlayers: 6,
	}
}

func (e *testEnv) fund(t *testing.T, player string, amount uint64) {
	t.Helper()
	require.NoError(t, e.srv.Deposit(player, amount))
}

func TestCreateAndListTables(t *testing.T) {
	env := newTestEnv(t)

	tbl, err := env.srv.CreateTable(testTableRequest("t1"))
	require.NoError(t, err)
	assert.Equal(t, "t1", tbl.Config.TableID)
	assert.Equal(t, poker.Waiting, tbl.Status)

	// An empty id gets a generated one.
	anon, err := env.srv.CreateTable(testTableRequest(""))
	require.NoError(t, err)
	assert.NotEmpty(t, anon.Config.TableID)

	_, err = env.srv.CreateTable(testTableRequest("t1"))
	assert.Error(t, err, "duplicate table id accepted")

	assert.Len(t, env.srv.ListTables(), 2)
	got, err := env.srv.GetTable("t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Config.TableID)

	_, err = env.srv.GetTable("missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestJoinMovesBuyInToCustody(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.srv.CreateTable(testTableRequest("t1"))
	require.NoError(t, err)

	env.fund(t, "alice", 1000)
	require.NoError(t, env.srv.Join("t1", "alice", 0, 400))
	tbl, err := env.srv.GetTable("t1")
	require.NoError(t, err)
	require.NotNil(t, tbl.Seats[0])
	assert.Equal(t, "alice", tbl.Seats[0].Owner)

	bal, err := env.srv.Balance("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 600, bal)
	bal, err = env.srv.Balance(ledger.CustodyAccount("t1"))
	require.NoError(t, err)
	assert.EqualValues(t, 400, bal)

	// A broke player cannot take a seat, and the table stays unchanged.
	err = env.srv.Join("t1", "bob", 1, 400)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	tbl, err = env.srv.GetTable("t1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, tbl.CurrentPlayers)

	// Leaving returns the stack from custody.
	chips, err := env.srv.Leave("t1", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 400, chips)
	bal, err = env.srv.Balance("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, bal)
	bal, err = env.srv.Balance(ledger.CustodyAccount("t1"))
	require.NoError(t, err)
	assert.Zero(t, bal)
}

// seatTwo creates table t1 with alice and bob seated.
func seatTwo(t *testing.T, env *testEnv) {
	t.Helper()
	_, err := env.srv.CreateTable(testTableRequest("t1"))
	require.NoError(t, err)
	env.fund(t, "alice", 1000)
	env.fund(t, "bob", 1000)
	require.NoError(t, env.srv.Join("t1", "alice", 0, 500))
	require.NoError(t, env.srv.Join("t1", "bob", 1, 500))
}

func TestPlaintextHandFlow(t *testing.T) {
	env := newTestEnv(t)
	seatTwo(t, env)

	require.NoError(t, env.srv.StartHand("t1", "authority"))
	require.NoError(t, env.srv.Deal("t1", "authority"))

	tbl, err := env.srv.GetTable("t1")
	require.NoError(t, err)
	require.NotNil(t, tbl.Hand)
	assert.Equal(t, poker.PreFlop, tbl.Hand.Phase)

	// Heads-up: the button posts the small blind and acts first.
	button := tbl.Seats[tbl.Hand.ActionOn]
	require.NotNil(t, button)
	require.NoError(t, env.srv.PlayerAction("t1", button.Owner, poker.Action{Kind: poker.Fold}))

	result, err := env.srv.Showdown("t1", "authority")
	require.NoError(t, err)
	assert.EqualValues(t, 30, result.TotalPot)

	tbl, err = env.srv.GetTable("t1")
	require.NoError(t, err)
	assert.Equal(t, poker.Waiting, tbl.Status)

	// Stacks moved but custody holds the same total.
	bal, err := env.srv.Balance(ledger.CustodyAccount("t1"))
	require.NoError(t, err)
	assert.EqualValues(t, 1000, bal)
	var chips uint64
	for _, s := range tbl.Seats {
		if s != nil {
			chips += s.Chips
		}
	}
	assert.EqualValues(t, 1000, chips, "chips not conserved across the hand")
}

func TestEncryptedShuffleFlow(t *testing.T) {
	env := newTestEnv(t)
	seatTwo(t, env)

	require.NoError(t, env.srv.StartHand("t1", "authority"))
	require.NoError(t, env.srv.RequestShuffle("t1", "authority"))
	require.NotZero(t, env.lastID, "oracle never received the request")

	// A callback with the wrong id is rejected.
	err := env.srv.HandleShuffleCallback(env.lastID+1, env.lastR)
	assert.ErrorIs(t, err, poker.ErrUnknownShuffleRequest)

	require.NoError(t, env.srv.HandleShuffleCallback(env.lastID, env.lastR))

	tbl, err := env.srv.GetTable("t1")
	require.NoError(t, err)
	assert.Equal(t, poker.PreFlop, tbl.Hand.Phase)
	for seat := 0; seat < 2; seat++ {
		s := tbl.Seats[seat]
		require.NotNil(t, s)
		for c := 0; c < 2; c++ {
			assert.Equal(t, privacy.SlotEncrypted, s.HoleCards[c].State)
		}
	}

	// Redelivering the same randomness must fail: the request is spent.
	err = env.srv.HandleShuffleCallback(env.lastID, env.lastR)
	assert.ErrorIs(t, err, poker.ErrUnknownShuffleRequest)

	// Allowances flow through to the covalidator.
	require.NoError(t, env.srv.GrantAllowance("t1", "authority", 0))
	require.NoError(t, env.srv.GrantAllowance("t1", "authority", 1))
	tbl, err = env.srv.GetTable("t1")
	require.NoError(t, err)
	assert.True(t, tbl.AreAllowancesGranted())
}

func TestTimeoutActionThroughServer(t *testing.T) {
	env := newTestEnv(t)
	seatTwo(t, env)

	require.NoError(t, env.srv.StartHand("t1", "authority"))
	require.NoError(t, env.srv.Deal("t1", "authority"))

	_, err := env.srv.TimeoutAction("t1")
	assert.ErrorIs(t, err, poker.ErrTimeoutNotReached)

	env.clock.Advance(61 * time.Second)
	forced, err := env.srv.TimeoutAction("t1")
	require.NoError(t, err)
	// The button owes half a bet, so the forced action is a fold.
	assert.Equal(t, poker.Fold, forced.Kind)

	tbl, err := env.srv.GetTable("t1")
	require.NoError(t, err)
	assert.Equal(t, poker.Showdown, tbl.Hand.Phase)
}

func TestRestoreFromStore(t *testing.T) {
	env := newTestEnv(t)
	seatTwo(t, env)
	require.NoError(t, env.srv.StartHand("t1", "authority"))
	require.NoError(t, env.srv.Deal("t1", "authority"))
	env.srv.Stop()

	// A fresh server over the same store sees the table mid-hand.
	restored, err := NewServer(Config{
		Store:      env.store,
		LogBackend: createTestLogBackend(t),
		Clock:      env.clock.Now,
	})
	require.NoError(t, err)
	defer restored.Stop()

	tbl, err := restored.GetTable("t1")
	require.NoError(t, err)
	assert.Equal(t, poker.TablePlaying, tbl.Status)
	require.NotNil(t, tbl.Hand)
	assert.Equal(t, poker.PreFlop, tbl.Hand.Phase)
	assert.EqualValues(t, 2, tbl.CurrentPlayers)

	// Play continues on the restored state.
	button := tbl.Seats[tbl.Hand.ActionOn]
	require.NotNil(t, button)
	require.NoError(t, restored.PlayerAction("t1", button.Owner, poker.Action{Kind: poker.Call}))
}

func TestCloseInactiveRefundsThroughLedger(t *testing.T) {
	env := newTestEnv(t)
	seatTwo(t, env)

	err := env.srv.CloseInactive("t1")
	assert.ErrorIs(t, err, poker.ErrTableStillActive)

	env.clock.Advance(2 * time.Hour)
	require.NoError(t, env.srv.CloseInactive("t1"))

	bal, err := env.srv.Balance("alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, bal)
	bal, err = env.srv.Balance(ledger.CustodyAccount("t1"))
	require.NoError(t, err)
	assert.Zero(t, bal)

	tbl, err := env.srv.GetTable("t1")
	require.NoError(t, err)
	assert.Equal(t, poker.Closed, tbl.Status)
}
