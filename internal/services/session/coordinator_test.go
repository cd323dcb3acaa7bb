package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/wordbomb/internal/dependencies/mocks"
	"github.com/mcoot/wordbomb/internal/model"
	"github.com/mcoot/wordbomb/internal/services/dictionary"
	"github.com/mcoot/wordbomb/internal/services/lobby"
	"github.com/mcoot/wordbomb/internal/storage/memory"
	"github.com/mcoot/wordbomb/internal/testutil"
)

type CoordinatorSuite struct {
	suite.Suite
	clock       *mocks.MockClock
	random      *mocks.MockRandom
	transport   *mocks.MockTransport
	coordinator *Coordinator
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.transport = mocks.NewMockTransport()

	dict := dictionary.New(memory.New(), s.random, dictionary.DefaultSyllableConfig(), logger)
	s.Require().NoError(dict.LoadWords([]string{"cat", "bat", "hat", "batter"}))
	dict.LoadSyllables([]string{"at"})

	s.coordinator = New(DefaultConfig(), s.clock, s.random, dict, s.transport, logger)
}

// send marshals payload and routes it as if it came from conn
func (s *CoordinatorSuite) send(conn model.ConnID, event string, payload any) {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.coordinator.HandleEvent(conn, event, data)
}

func (s *CoordinatorSuite) lastTo(conn model.ConnID, event string) mocks.Message {
	msgs := s.transport.DeliveredTo(conn)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return msgs[i]
		}
	}
	s.Require().FailNow("event not delivered", "%s to %s", event, conn)
	return mocks.Message{}
}

func (s *CoordinatorSuite) eventsTo(conn model.ConnID) []string {
	var events []string
	for _, m := range s.transport.DeliveredTo(conn) {
		events = append(events, m.Event)
	}
	return events
}

func (s *CoordinatorSuite) errorTo(conn model.ConnID) string {
	var payload model.ErrorPayload
	s.Require().NoError(s.lastTo(conn, model.EventError).Decode(&payload))
	return payload.Message
}

func (s *CoordinatorSuite) auth(conn model.ConnID, name string) model.PlayerID {
	s.send(conn, model.EventAuth, model.AuthPayload{PlayerName: name})
	var authed model.AuthedPayload
	s.Require().NoError(s.lastTo(conn, model.EventPlayerAuthed).Decode(&authed))
	return authed.PlayerID
}

func (s *CoordinatorSuite) create(conn model.ConnID, code string) *lobby.Lobby {
	s.random.QueueString(code)
	s.send(conn, model.EventLobbyCreate, model.CreateLobbyPayload{LobbyName: "Room", IsPublic: true})
	l, ok := s.coordinator.lobbies.GetByCode(model.LobbyCode(code))
	s.Require().True(ok)
	return l
}

func (s *CoordinatorSuite) join(conn model.ConnID, code string) {
	s.send(conn, model.EventLobbyJoin, model.JoinLobbyPayload{LobbyCode: model.LobbyCode(code)})
}

// setupGame seats Alice (host, c1) and Bob (c2) and starts a game
func (s *CoordinatorSuite) setupGame() (*lobby.Lobby, model.PlayerID, model.PlayerID) {
	alice := s.auth("c1", "Alice")
	bob := s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")
	s.send("c1", model.EventGameReady, nil)
	s.send("c2", model.EventGameReady, nil)
	s.send("c1", model.EventGameStart, nil)
	s.Require().Equal(model.LobbyStatePlaying, l.State())
	return l, alice, bob
}

func (s *CoordinatorSuite) advance(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += lobby.TimerStep {
		s.clock.Advance(lobby.TimerStep)
		s.coordinator.Tick(s.clock.Now())
	}
}

// Connection and auth tests

func (s *CoordinatorSuite) TestConnectDeliversListing() {
	s.coordinator.HandleConnect("c1")
	s.Equal([]string{model.EventLobbyList}, s.eventsTo("c1"))
}

func (s *CoordinatorSuite) TestAuthMintsIdentity() {
	s.send("c1", model.EventAuth, model.AuthPayload{PlayerName: "  Alice  "})

	s.Equal([]string{model.EventPlayerAuthed, model.EventLobbyList}, s.eventsTo("c1"))
	var authed model.AuthedPayload
	s.Require().NoError(s.lastTo("c1", model.EventPlayerAuthed).Decode(&authed))
	s.NotEmpty(authed.PlayerID)
	s.Equal("Alice", authed.PlayerName)
	s.False(authed.IsReconnect)
}

func (s *CoordinatorSuite) TestAuthRejectsBlankName() {
	s.send("c1", model.EventAuth, model.AuthPayload{PlayerName: "   "})
	s.Equal("Please enter a name", s.errorTo("c1"))
	s.Equal(0, s.coordinator.identities.Len())
}

func (s *CoordinatorSuite) TestUnknownPlayerIDMintsNewIdentity() {
	s.send("c1", model.EventAuth, model.AuthPayload{PlayerID: "stale", PlayerName: "Alice"})

	var authed model.AuthedPayload
	s.Require().NoError(s.lastTo("c1", model.EventPlayerAuthed).Decode(&authed))
	s.NotEqual(model.PlayerID("stale"), authed.PlayerID)
	s.False(authed.IsReconnect)
}

func (s *CoordinatorSuite) TestEventsRequireAuth() {
	s.send("c1", model.EventLobbyCreate, model.CreateLobbyPayload{LobbyName: "Room"})
	s.Equal("Not authenticated", s.errorTo("c1"))
}

func (s *CoordinatorSuite) TestUnknownEventAndBadPayload() {
	s.coordinator.HandleEvent("c1", "lobby.explode", nil)
	s.Equal("Unknown event", s.errorTo("c1"))

	s.coordinator.HandleEvent("c1", model.EventAuth, json.RawMessage(`{"playerName": 5}`))
	s.Equal("Invalid request", s.errorTo("c1"))
}

// Lobby tests

func (s *CoordinatorSuite) TestCreateLobby() {
	alice := s.auth("c1", "Alice")
	s.transport.Reset()

	l := s.create("c1", "ABC123")

	s.Equal([]string{model.EventLobbyJoined, model.EventGameState}, s.eventsTo("c1"))
	s.True(s.transport.InRoom("c1", l.ID()))
	s.Equal(alice, l.HostID())

	listing, ok := s.transport.Last(model.EventLobbyList)
	s.Require().True(ok)
	s.True(listing.All)
	var entries []model.ListingEntry
	s.Require().NoError(listing.Decode(&entries))
	s.Require().Len(entries, 1)
	s.Equal(model.LobbyCode("ABC123"), entries[0].Code)
	s.Equal("Alice", entries[0].HostName)
}

func (s *CoordinatorSuite) TestJoinByCodeIgnoresCase() {
	s.auth("c1", "Alice")
	bob := s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.transport.Reset()

	s.join("c2", "abc123")

	s.Equal([]string{model.EventLobbyJoined, model.EventGameState}, s.eventsTo("c2"))
	s.True(s.transport.InRoom("c2", l.ID()))
	s.True(l.HasPlayer(bob))
	s.Equal(2, l.PlayerCount())
}

func (s *CoordinatorSuite) TestJoinUnknownCode() {
	s.auth("c1", "Alice")
	s.join("c1", "NOPE99")
	s.Equal("Lobby not found", s.errorTo("c1"))
}

func (s *CoordinatorSuite) TestJoinWhilePlayingRejected() {
	s.setupGame()
	s.auth("c3", "Cara")
	s.join("c3", "ABC123")
	s.Equal("Game already in progress", s.errorTo("c3"))
}

func (s *CoordinatorSuite) TestCreateIsRateLimited() {
	s.auth("c1", "Alice")
	for i := 0; i < 3; i++ {
		s.create("c1", "ABC123")
	}
	s.transport.Reset()

	s.send("c1", model.EventLobbyCreate, model.CreateLobbyPayload{LobbyName: "Room"})
	s.Equal("Too many requests", s.errorTo("c1"))

	s.clock.Advance(time.Minute)
	s.create("c1", "ABC123")
}

func (s *CoordinatorSuite) TestLeaveLobby() {
	s.auth("c1", "Alice")
	bob := s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")
	s.transport.Reset()

	s.send("c2", model.EventLobbyLeave, nil)

	s.Equal([]string{model.EventLobbyLeft, model.EventLobbyList}, s.eventsTo("c2"))
	s.False(s.transport.InRoom("c2", l.ID()))
	s.False(l.HasPlayer(bob))

	s.send("c1", model.EventLobbyLeave, nil)
	s.Equal(0, s.coordinator.lobbies.Len())

	s.send("c1", model.EventLobbyLeave, nil)
	s.Equal("Not in a lobby", s.errorTo("c1"))
}

func (s *CoordinatorSuite) TestSettingsHostOnly() {
	s.auth("c1", "Alice")
	s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")

	s.send("c2", model.EventLobbySettings, map[string]int{"turnTime": 20})
	s.Equal("Only the host can do that", s.errorTo("c2"))

	s.send("c1", model.EventLobbySettings, map[string]int{"turnTime": 99})
	s.Equal(model.MaxTurnTime, l.Settings().TurnTime)
}

func (s *CoordinatorSuite) TestIdleLobbyExpiryNotifiesMembers() {
	alice := s.auth("c1", "Alice")
	l := s.create("c1", "ABC123")

	s.clock.Advance(lobby.IdleTimeout)
	s.coordinator.Tick(s.clock.Now())

	var left model.LobbyLeftPayload
	s.Require().NoError(s.lastTo("c1", model.EventLobbyLeft).Decode(&left))
	s.Equal(model.LobbyLeftPayload{LobbyID: l.ID(), Reason: "expired"}, left)
	s.False(s.transport.InRoom("c1", l.ID()))

	ident, ok := s.coordinator.identities.Get(alice)
	s.Require().True(ok)
	s.Empty(ident.LobbyID)
}

// Game event tests

func (s *CoordinatorSuite) TestSubmitAcceptedIsBroadcast() {
	l, alice, _ := s.setupGame()

	s.send("c1", model.EventGameSubmit, model.SubmitPayload{Word: "cat"})

	msg, ok := s.transport.Last(model.EventGameWordSuccess)
	s.Require().True(ok)
	s.Equal(l.ID(), msg.Lobby)
	var success model.WordSuccessPayload
	s.Require().NoError(msg.Decode(&success))
	s.Equal(alice, success.PlayerID)
	s.Equal("cat", success.Word)
}

func (s *CoordinatorSuite) TestSubmitRejectionsGoToSenderOnly() {
	s.setupGame()

	s.send("c2", model.EventGameSubmit, model.SubmitPayload{Word: "cat"})
	var rejected model.WordRejectedPayload
	s.Require().NoError(s.lastTo("c2", model.EventGameWordRejected).Decode(&rejected))
	s.Equal(model.RejectNotYourTurn, rejected.Reason)

	s.send("c1", model.EventGameSubmit, model.SubmitPayload{Word: "dog"})
	s.Require().NoError(s.lastTo("c1", model.EventGameWordRejected).Decode(&rejected))
	s.Equal(model.RejectMissingSyllable, rejected.Reason)

	s.Empty(s.transport.Events(model.EventError))
}

func (s *CoordinatorSuite) TestSubmitOverLimitIsDroppedSilently() {
	s.setupGame()
	s.transport.Reset()

	for i := 0; i < 8; i++ {
		s.send("c2", model.EventGameSubmit, model.SubmitPayload{Word: "cat"})
	}

	s.Len(s.eventsTo("c2"), 5)
	s.Empty(s.transport.Events(model.EventError))
}

func (s *CoordinatorSuite) TestTypingIsMirroredAndRejectionsAreSilent() {
	l, alice, _ := s.setupGame()
	s.transport.Reset()

	s.send("c2", model.EventGameTyping, model.TypingPayload{Text: "b"})
	s.Empty(s.transport.Messages)

	s.send("c1", model.EventGameTyping, model.TypingPayload{Text: "ca"})
	msg, ok := s.transport.Last(model.EventGameTyping)
	s.Require().True(ok)
	s.Equal(l.ID(), msg.Lobby)
	var typing model.TypingBroadcastPayload
	s.Require().NoError(msg.Decode(&typing))
	s.Equal(model.TypingBroadcastPayload{PlayerID: alice, Text: "ca"}, typing)
}

// Reconnection tests

func (s *CoordinatorSuite) TestReconnectWithinGraceKeepsSeat() {
	s.auth("c1", "Alice")
	bob := s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")
	s.send("c2", model.EventGameReady, nil)

	s.coordinator.HandleDisconnect("c2")
	seat, _ := l.Player(bob)
	s.False(seat.IsConnected)

	s.advance(10 * time.Second)
	s.send("c3", model.EventAuth, model.AuthPayload{PlayerID: bob, PlayerName: "Bob"})

	s.Equal([]string{model.EventPlayerAuthed, model.EventLobbyList, model.EventLobbyJoined}, s.eventsTo("c3"))
	var authed model.AuthedPayload
	s.Require().NoError(s.lastTo("c3", model.EventPlayerAuthed).Decode(&authed))
	s.Equal(model.AuthedPayload{PlayerID: bob, PlayerName: "Bob", IsReconnect: true}, authed)
	s.True(s.transport.InRoom("c3", l.ID()))

	s.advance(30 * time.Second)
	seat, ok := l.Player(bob)
	s.Require().True(ok)
	s.True(seat.IsConnected)
	s.True(seat.IsReady)
}

func (s *CoordinatorSuite) TestSeatReleasedAfterGraceWhileWaiting() {
	s.auth("c1", "Alice")
	bob := s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")

	s.coordinator.HandleDisconnect("c2")
	s.advance(DefaultConfig().SeatGracePeriod - lobby.TimerStep)
	s.True(l.HasPlayer(bob))

	s.advance(lobby.TimerStep)
	s.False(l.HasPlayer(bob))

	ident, ok := s.coordinator.identities.Get(bob)
	s.Require().True(ok)
	s.Empty(ident.LobbyID)
}

func (s *CoordinatorSuite) TestSeatKeptWhilePlaying() {
	l, _, bob := s.setupGame()

	s.coordinator.HandleDisconnect("c2")
	s.advance(DefaultConfig().SeatGracePeriod)

	s.Equal(model.LobbyStatePlaying, l.State())
	s.True(l.HasPlayer(bob))
}

func (s *CoordinatorSuite) TestIdentityPurgedAfterTTL() {
	alice := s.auth("c1", "Alice")
	s.create("c1", "ABC123")

	s.coordinator.HandleDisconnect("c1")
	s.clock.Advance(DefaultConfig().IdentityTTL)
	s.coordinator.Tick(s.clock.Now())

	_, ok := s.coordinator.identities.Get(alice)
	s.False(ok)
	s.Equal(0, s.coordinator.lobbies.Len())

	s.send("c2", model.EventAuth, model.AuthPayload{PlayerID: alice, PlayerName: "Alice"})
	var authed model.AuthedPayload
	s.Require().NoError(s.lastTo("c2", model.EventPlayerAuthed).Decode(&authed))
	s.NotEqual(alice, authed.PlayerID)
	s.False(authed.IsReconnect)
}

func (s *CoordinatorSuite) TestRestoreIntoSeatedLobby() {
	s.auth("c1", "Alice")
	bob := s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")
	s.coordinator.HandleDisconnect("c2")

	s.send("c3", model.EventRestore, model.RestorePayload{PlayerID: bob, PlayerName: "Bob", LobbyCode: "abc123"})

	var restored model.RestoredPayload
	s.Require().NoError(s.lastTo("c3", model.EventPlayerRestored).Decode(&restored))
	s.Equal(model.RestoredPayload{
		PlayerID:  bob,
		InLobby:   true,
		LobbyID:   l.ID(),
		LobbyCode: "ABC123",
		LobbyName: "Room",
	}, restored)
	s.True(s.transport.InRoom("c3", l.ID()))
	seat, _ := l.Player(bob)
	s.True(seat.IsConnected)
}

func (s *CoordinatorSuite) TestRestoreKnownButNotSeated() {
	alice := s.auth("c1", "Alice")
	s.coordinator.HandleDisconnect("c1")

	s.send("c2", model.EventRestore, model.RestorePayload{PlayerID: alice, PlayerName: "Alice", LobbyCode: "ABC123"})

	var restored model.RestoredPayload
	s.Require().NoError(s.lastTo("c2", model.EventPlayerRestored).Decode(&restored))
	s.Equal(model.RestoredPayload{PlayerID: alice}, restored)
}

func (s *CoordinatorSuite) TestRestoreUnknownMintsReplacement() {
	s.send("c1", model.EventRestore, model.RestorePayload{PlayerID: "gone", PlayerName: "Alice", LobbyCode: "ABC123"})

	var failed model.RestoreFailedPayload
	s.Require().NoError(s.lastTo("c1", model.EventPlayerRestoreFail).Decode(&failed))
	s.NotEmpty(failed.Reason)
	s.NotEmpty(failed.NewPlayerID)

	ident, ok := s.coordinator.identities.Resolve("c1")
	s.Require().True(ok)
	s.Equal(failed.NewPlayerID, ident.ID)
}

func (s *CoordinatorSuite) TestRestoreElsewhereKeepsCurrentSeat() {
	l, alice, _ := s.setupGame()
	s.coordinator.HandleDisconnect("c1")
	seat, _ := l.Player(alice)
	s.Require().False(seat.IsConnected)

	s.send("c9", model.EventRestore, model.RestorePayload{PlayerID: alice, PlayerName: "Alice", LobbyCode: "ZZZZZZ"})

	var restored model.RestoredPayload
	s.Require().NoError(s.lastTo("c9", model.EventPlayerRestored).Decode(&restored))
	s.Equal(model.RestoredPayload{PlayerID: alice}, restored)

	s.True(l.HasPlayer(alice))
	s.Equal(model.LobbyStatePlaying, l.State())
	seat, _ = l.Player(alice)
	s.True(seat.IsConnected)
	s.True(s.transport.InRoom("c9", l.ID()))
	s.Contains(s.eventsTo("c9"), model.EventLobbyJoined)
}

func (s *CoordinatorSuite) TestRestoreUnknownWithoutNameStillMints() {
	s.send("c1", model.EventRestore, model.RestorePayload{PlayerID: "gone"})

	var failed model.RestoreFailedPayload
	s.Require().NoError(s.lastTo("c1", model.EventPlayerRestoreFail).Decode(&failed))
	s.NotEmpty(failed.NewPlayerID)
	s.NotContains(s.eventsTo("c1"), model.EventError)

	ident, ok := s.coordinator.identities.Resolve("c1")
	s.Require().True(ok)
	s.Equal(model.PlaceholderName, ident.Name)

	// a later auth with the minted id sets the real name
	s.send("c1", model.EventAuth, model.AuthPayload{PlayerID: failed.NewPlayerID, PlayerName: "Alice"})
	ident, _ = s.coordinator.identities.Resolve("c1")
	s.Equal("Alice", ident.Name)
}

func (s *CoordinatorSuite) TestFailedCreateKeepsCurrentSeat() {
	alice := s.auth("c1", "Alice")
	s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")

	// no code queued, so the registry cannot find a free one
	s.send("c1", model.EventLobbyCreate, model.CreateLobbyPayload{LobbyName: "Other", IsPublic: true})

	s.lastTo("c1", model.EventError)
	s.True(l.HasPlayer(alice))
	s.Equal(alice, l.HostID())
	s.True(s.transport.InRoom("c1", l.ID()))
	s.Equal(1, s.coordinator.lobbies.Len())
}

func (s *CoordinatorSuite) TestSoftRematchReleasesOldIdentity() {
	l, _, bob := s.setupGame()
	s.coordinator.HandleDisconnect("c2")

	newBob := s.auth("c3", "bob")
	s.join("c3", "ABC123")

	s.True(l.HasPlayer(newBob))
	s.False(l.HasPlayer(bob))
	s.True(s.transport.InRoom("c3", l.ID()))
	old, ok := s.coordinator.identities.Get(bob)
	s.Require().True(ok)
	s.Empty(old.LobbyID)
}

func (s *CoordinatorSuite) TestSecondConnectionEvictsFirst() {
	s.auth("c1", "Alice")
	bob := s.auth("c2", "Bob")
	l := s.create("c1", "ABC123")
	s.join("c2", "ABC123")

	s.send("c3", model.EventAuth, model.AuthPayload{PlayerID: bob, PlayerName: "Bob"})
	s.False(s.transport.InRoom("c2", l.ID()))
	s.True(s.transport.InRoom("c3", l.ID()))

	// the evicted connection closing must not disconnect the seat
	s.coordinator.HandleDisconnect("c2")
	seat, _ := l.Player(bob)
	s.True(seat.IsConnected)
}

// Loop tests

func (s *CoordinatorSuite) TestRunServesQueuedWorkInOrder() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.coordinator.Run(ctx)
		close(done)
	}()

	data, _ := json.Marshal(model.AuthPayload{PlayerName: "Alice"})
	s.coordinator.Connect("c1")
	s.coordinator.Dispatch("c1", model.EventAuth, data)

	entries, err := s.coordinator.Listing(ctx)
	s.Require().NoError(err)
	s.Empty(entries)
	s.Equal([]string{model.EventLobbyList, model.EventPlayerAuthed, model.EventLobbyList}, s.eventsTo("c1"))

	_, err = s.coordinator.Lookup(ctx, "NOPE99")
	s.ErrorIs(err, model.ErrLobbyNotFound)

	cancel()
	<-done
	_, err = s.coordinator.Listing(context.Background())
	s.ErrorIs(err, model.ErrStopped)
}
