package lobby

import (
	"errors"
	"strings"
	"time"

	"github.com/mcoot/wordbomb/internal/model"
)

func (s *LobbySuite) requireRejected(err error, reason model.RejectReason) {
	s.T().Helper()
	var rej *model.Rejection
	s.Require().True(errors.As(err, &rej), "expected rejection %q, got %v", reason, err)
	s.Equal(reason, rej.Reason)
}

// Start tests

func (s *LobbySuite) TestStartRequiresHost() {
	l := s.createLobby()
	_, _ = l.Join("p2", "Bob")
	_ = l.ToggleReady("host")
	_ = l.ToggleReady("p2")

	s.ErrorIs(l.Start("p2"), model.ErrNotHost)
	s.ErrorIs(l.Start("ghost"), model.ErrNotInLobby)
	s.Equal(model.LobbyStateWaiting, l.State())
}

func (s *LobbySuite) TestStartRequiresTwoReadyConnectedPlayers() {
	l := s.createLobby()
	_, _ = l.Join("p2", "Bob")
	_ = l.ToggleReady("host")

	s.ErrorIs(l.Start("host"), model.ErrInsufficientPlayers)

	_ = l.ToggleReady("p2")
	_ = l.SetConnected("p2", false)
	s.ErrorIs(l.Start("host"), model.ErrInsufficientPlayers)

	_ = l.SetConnected("p2", true)
	s.NoError(l.Start("host"))
	s.ErrorIs(l.Start("host"), model.ErrGameInProgress)
}

func (s *LobbySuite) TestStartRefusedWithoutSyllables() {
	s.dict.LoadSyllables(nil)
	l := s.createLobby()
	_, _ = l.Join("p2", "Bob")
	_ = l.ToggleReady("host")
	_ = l.ToggleReady("p2")

	s.ErrorIs(l.Start("host"), model.ErrNoSyllables)
	s.Equal(model.LobbyStateWaiting, l.State())
	s.requireRejected(l.SubmitWord("host", "dog"), model.RejectNotPlaying)
}

func (s *LobbySuite) TestStartLeavesUnreadyPlayersAsSpectators() {
	l := s.createLobby()
	_, _ = l.Join("p3", "Cara")
	s.startGame(l, "p2")

	s.Equal(model.LobbyStatePlaying, l.State())
	s.Equal("at", l.CurrentSyllable())
	s.Equal(10.0, l.TimerValue())
	s.True(l.TimerRunning())
	s.Equal(model.PlayerID("host"), s.activeID(l))

	spectator := s.seat(l, "p3")
	s.Equal(0, spectator.Lives)
	s.False(spectator.InGame)
	s.True(s.seat(l, "p2").InGame)
	s.Equal(3, s.seat(l, "p2").Lives)
}

// Submission tests

func (s *LobbySuite) TestAcceptedWordScoresAndAdvances() {
	l := s.createLobby()
	s.startGame(l, "p2")

	s.advance(5 * time.Second)
	s.Require().NoError(l.SubmitWord("host", " Batter "))

	msg, ok := s.transport.Last(model.EventGameWordSuccess)
	s.Require().True(ok)
	var success model.WordSuccessPayload
	s.Require().NoError(msg.Decode(&success))
	// 6 letters, half the timer left, one letter past the length threshold
	s.Equal(model.WordSuccessPayload{PlayerID: "host", Word: "batter", BonusScore: 90}, success)

	host := s.seat(l, "host")
	s.Equal(90, host.Score)
	s.Equal(1, host.WordsCompleted)
	s.True(l.TurnLocked())
	s.False(l.TimerRunning())
	s.True(l.IsUsed("BATTER"))

	s.advance(SubmitAdvanceDelay)
	s.Equal(model.PlayerID("p2"), s.activeID(l))
	s.False(l.TurnLocked())
	s.Equal(10.0, l.TimerValue())

	s.requireRejected(l.SubmitWord("p2", "batter"), model.RejectAlreadyUsed)
}

func (s *LobbySuite) TestSubmitRejectionReasons() {
	l := s.createLobby()
	_, _ = l.Join("p2", "Bob")
	s.requireRejected(l.SubmitWord("host", "cat"), model.RejectNotPlaying)

	_ = l.ToggleReady("host")
	_ = l.ToggleReady("p2")
	s.Require().NoError(l.Start("host"))

	cases := []struct {
		player model.PlayerID
		word   string
		reason model.RejectReason
	}{
		{"p2", "cat", model.RejectNotYourTurn},
		{"host", "c4t", model.RejectInvalidInput},
		{"host", "a1", model.RejectInvalidInput},
		{"host", "", model.RejectInvalidInput},
		{"host", strings.Repeat("a", model.MaxInputLength+1), model.RejectInvalidInput},
		{"host", "at", model.RejectTooShort},
		{"host", "dog", model.RejectMissingSyllable},
		{"host", "zzat", model.RejectNotAWord},
		{"host", "çat", model.RejectNotAWord},
	}
	for _, tc := range cases {
		s.requireRejected(l.SubmitWord(tc.player, tc.word), tc.reason)
	}

	s.Equal(0, s.seat(l, "host").Score)
	s.False(l.TurnLocked())
	s.Empty(s.transport.Events(model.EventGameWordSuccess))

	_ = l.SetConnected("host", false)
	s.requireRejected(l.SubmitWord("host", "cat"), model.RejectDisconnected)
}

// Timer tests

func (s *LobbySuite) TestTimerBroadcastsEveryStep() {
	l := s.createLobby()
	s.startGame(l, "p2")

	s.advance(TimerStep)
	msg, ok := s.transport.Last(model.EventGameTimer)
	s.Require().True(ok)
	var timer model.TimerPayload
	s.Require().NoError(msg.Decode(&timer))
	s.Equal(model.TimerPayload{TimerValue: 9.9, TimerMax: 10}, timer)

	s.advance(900 * time.Millisecond)
	s.Len(s.transport.Events(model.EventGameTimer), 10)
	s.Equal(9.0, l.TimerValue())
}

func (s *LobbySuite) TestTimeoutCostsOneLifeAndAdvances() {
	l := s.createLobby()
	s.startGame(l, "p2")

	s.advance(10 * time.Second)

	explosions := s.transport.Events(model.EventGameExplosion)
	s.Require().Len(explosions, 1)
	var explosion model.ExplosionPayload
	s.Require().NoError(explosions[0].Decode(&explosion))
	s.Equal(model.PlayerID("host"), explosion.PlayerID)
	s.Equal([]model.PlayerLives{{ID: "host", Lives: 2}, {ID: "p2", Lives: 3}}, explosion.Players)
	s.True(l.TurnLocked())
	s.Equal(model.PlayerID("host"), s.activeID(l))

	s.advance(TimeoutAdvanceDelay - TimerStep)
	s.Equal(model.PlayerID("host"), s.activeID(l))

	s.advance(TimerStep)
	s.Equal(model.PlayerID("p2"), s.activeID(l))
	s.Len(s.transport.Events(model.EventGameExplosion), 1)
	s.Equal(2, s.seat(l, "host").Lives)
	s.Equal(0, s.seat(l, "host").Score)
}

func (s *LobbySuite) TestSubmitAfterTimeoutIsRejected() {
	l := s.createLobby()
	s.startGame(l, "p2")

	s.advance(10 * time.Second)
	s.requireRejected(l.SubmitWord("host", "cat"), model.RejectTurnLocked)

	s.Equal(0, s.seat(l, "host").Score)
	s.Empty(s.transport.Events(model.EventGameWordSuccess))
}

func (s *LobbySuite) TestAcceptedWordCancelsTimeout() {
	l := s.createLobby()
	s.startGame(l, "p2")

	s.advance(10*time.Second - TimerStep)
	s.Require().NoError(l.SubmitWord("host", "cat"))
	s.advance(500 * time.Millisecond)

	s.Empty(s.transport.Events(model.EventGameExplosion))
	s.Equal(3, s.seat(l, "host").Lives)
}

func (s *LobbySuite) TestTypingMirrorsActivePlayer() {
	l := s.createLobby()
	s.startGame(l, "p2")

	s.Require().NoError(l.UpdateTyping("host", "ba"))
	msg, ok := s.transport.Last(model.EventGameTyping)
	s.Require().True(ok)
	var typing model.TypingBroadcastPayload
	s.Require().NoError(msg.Decode(&typing))
	s.Equal(model.TypingBroadcastPayload{PlayerID: "host", Text: "ba"}, typing)

	s.requireRejected(l.UpdateTyping("p2", "x"), model.RejectNotYourTurn)

	s.Require().NoError(l.UpdateTyping("host", strings.Repeat("b", 40)))
	s.Equal(strings.Repeat("b", model.MaxInputLength), s.seat(l, "host").CurrentInput)
}

// Turn order tests

func (s *LobbySuite) TestEliminatedPlayersAreSkipped() {
	l := s.createLobby()
	one := 1
	s.Require().NoError(l.UpdateSettings("host", model.SettingsUpdate{StartLives: &one}))
	s.startGame(l, "p2", "p3")

	s.advance(10 * time.Second)
	s.Equal(0, s.seat(l, "host").Lives)
	s.advance(TimeoutAdvanceDelay)
	s.Equal(model.PlayerID("p2"), s.activeID(l))

	s.Require().NoError(l.SubmitWord("p2", "cat"))
	s.advance(SubmitAdvanceDelay)
	s.Equal(model.PlayerID("p3"), s.activeID(l))

	s.Require().NoError(l.SubmitWord("p3", "bat"))
	s.advance(SubmitAdvanceDelay)
	s.Equal(model.PlayerID("p2"), s.activeID(l))
	s.Equal(1, l.CurrentTurnIndex())
	s.Equal(model.LobbyStatePlaying, l.State())
}

func (s *LobbySuite) TestGameEndsWithLastSurvivorThenResets() {
	l := s.createLobby()
	one := 1
	s.Require().NoError(l.UpdateSettings("host", model.SettingsUpdate{StartLives: &one}))
	_, _ = l.Join("p3", "Cara")
	s.startGame(l, "p2")

	s.Require().NoError(l.SubmitWord("host", "cat"))
	s.advance(SubmitAdvanceDelay)
	s.advance(10 * time.Second)
	s.Equal(0, s.seat(l, "p2").Lives)
	s.advance(TimeoutAdvanceDelay)

	s.Equal(model.LobbyStateFinished, l.State())
	msg, ok := s.transport.Last(model.EventGameEnd)
	s.Require().True(ok)
	var end model.GameEndPayload
	s.Require().NoError(msg.Decode(&end))
	s.Equal(&model.Winner{ID: "host", Name: "Host", Score: 80}, end.Winner)
	// the spectator is ranked too, behind the participant it ties with
	s.Require().Len(end.Rankings, 3)
	s.Equal(model.PlayerID("host"), end.Rankings[0].PlayerID)
	s.Equal(1, end.Rankings[0].Rank)
	s.Equal(model.PlayerID("p2"), end.Rankings[1].PlayerID)
	s.Equal(2, end.Rankings[1].Rank)
	s.Equal(model.PlayerID("p3"), end.Rankings[2].PlayerID)
	s.Equal(3, end.Rankings[2].Rank)
	s.Equal(0, end.Rankings[2].Score)

	s.advance(GameEndResetDelay)
	s.Equal(model.LobbyStateWaiting, l.State())
	for _, p := range l.Players() {
		s.Equal(1, p.Lives)
		s.Equal(0, p.Score)
		s.False(p.IsReady)
		s.False(p.InGame)
	}
	s.False(l.IsUsed("cat"))
}

// Departure tests

func (s *LobbySuite) TestLeaverBeforeActiveKeepsTurnPointer() {
	l := s.createLobby()
	s.startGame(l, "p2", "p3")
	s.Require().NoError(l.SubmitWord("host", "cat"))
	s.advance(SubmitAdvanceDelay)
	s.Require().Equal(model.PlayerID("p2"), s.activeID(l))
	s.advance(time.Second)

	s.Require().NoError(l.Remove("host"))

	s.Equal(0, l.CurrentTurnIndex())
	s.Equal(model.PlayerID("p2"), s.activeID(l))
	s.Equal(9.0, l.TimerValue())
	s.True(l.TimerRunning())
	s.Equal(model.PlayerID("p2"), l.HostID())
}

func (s *LobbySuite) TestActiveLeaverPassesOpenTurn() {
	l := s.createLobby()
	s.startGame(l, "p2", "p3")
	s.advance(3 * time.Second)

	s.Require().NoError(l.Remove("host"))

	s.Equal(model.PlayerID("p2"), s.activeID(l))
	s.False(l.TurnLocked())
	s.Equal(10.0, l.TimerValue())
}

func (s *LobbySuite) TestLastSeatLeavingWrapsToFirst() {
	l := s.createLobby()
	s.startGame(l, "p2", "p3")
	s.Require().NoError(l.SubmitWord("host", "cat"))
	s.advance(SubmitAdvanceDelay)
	s.Require().NoError(l.SubmitWord("p2", "bat"))
	s.advance(SubmitAdvanceDelay)
	s.Require().Equal(model.PlayerID("p3"), s.activeID(l))

	s.Require().NoError(l.Remove("p3"))

	s.Equal(0, l.CurrentTurnIndex())
	s.Equal(model.PlayerID("host"), s.activeID(l))
	s.False(l.TurnLocked())
}

func (s *LobbySuite) TestActiveLeaverDuringLockedTurnAdvancesOnce() {
	l := s.createLobby()
	s.startGame(l, "p2", "p3")
	s.Require().NoError(l.SubmitWord("host", "cat"))

	s.Require().NoError(l.Remove("host"))
	s.True(l.TurnLocked())

	s.advance(SubmitAdvanceDelay)
	s.Equal(model.PlayerID("p2"), s.activeID(l))
	s.False(l.TurnLocked())
}

func (s *LobbySuite) TestDepartureLeavingOneAliveEndsGame() {
	l := s.createLobby()
	s.startGame(l, "p2")

	s.Require().NoError(l.Remove("p2"))

	s.Equal(model.LobbyStateFinished, l.State())
	msg, ok := s.transport.Last(model.EventGameEnd)
	s.Require().True(ok)
	var end model.GameEndPayload
	s.Require().NoError(msg.Decode(&end))
	s.Require().NotNil(end.Winner)
	s.Equal(model.PlayerID("host"), end.Winner.ID)
}

func (s *LobbySuite) TestClosedLobbyDropsDeferredWork() {
	l := s.createLobby()
	s.startGame(l, "p2")
	s.Require().NoError(l.SubmitWord("host", "cat"))

	s.registry.Destroy(l.ID())
	s.transport.Reset()

	s.clock.Advance(TimeoutAdvanceDelay)
	l.Tick(s.clock.Now())

	s.Empty(s.transport.Messages)
	s.True(l.TurnLocked())
}
