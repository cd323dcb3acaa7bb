package lobby

import (
	"github.com/mcoot/wordbomb/internal/model"
)

func (s *LobbySuite) TestCreateSeatsHostAndPublishesListing() {
	l := s.createLobby()

	s.Equal(model.LobbyCode("ABC123"), l.Code())
	s.Equal("Room", l.Name())
	s.Equal(model.PlayerID("host"), l.HostID())
	s.Equal(model.PlayerID("host"), l.OriginalHostID())
	s.Equal(model.DefaultSettings(), l.Settings())
	s.NotEmpty(l.ID())

	s.Equal([]model.ListingEntry{{
		ID:          l.ID(),
		Code:        "ABC123",
		Name:        "Room",
		PlayerCount: 1,
		MaxPlayers:  8,
		HostName:    "Host",
		State:       model.LobbyStateWaiting,
	}}, s.registry.Listing())

	s.True(s.registry.TakeListingChanged())
	s.False(s.registry.TakeListingChanged())
}

func (s *LobbySuite) TestCreateRetriesOnCodeCollision() {
	s.createLobby()
	s.random.QueueString("abc123", "XYZ789")

	l, err := s.registry.Create("p2", "Bob", "Other", true)
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("XYZ789"), l.Code())
	s.Equal(2, s.registry.Len())
}

func (s *LobbySuite) TestCreateGivesUpWithoutFreeCode() {
	_, err := s.registry.Create("host", "Host", "Room", true)
	s.ErrorIs(err, ErrNoFreeCode)
	s.Equal(0, s.registry.Len())
}

func (s *LobbySuite) TestCreateDefaultsBlankName() {
	s.random.QueueString("ABC123")
	l, err := s.registry.Create("host", "Host", "   ", false)
	s.Require().NoError(err)
	s.Equal("Host's lobby", l.Name())
	s.False(l.Settings().IsPublic)
}

func (s *LobbySuite) TestLookupByCodeIgnoresCase() {
	l := s.createLobby()

	found, ok := s.registry.GetByCode(" abc123 ")
	s.Require().True(ok)
	s.Same(l, found)

	_, ok = s.registry.GetByCode("ZZZZZZ")
	s.False(ok)
}

func (s *LobbySuite) TestLocateFallsBackToCode() {
	l := s.createLobby()

	found, ok := s.registry.Locate(l.ID(), "")
	s.Require().True(ok)
	s.Same(l, found)

	found, ok = s.registry.Locate("stale-id", "abc123")
	s.Require().True(ok)
	s.Same(l, found)

	_, ok = s.registry.Locate("stale-id", "")
	s.False(ok)
}

func (s *LobbySuite) TestListingHidesPrivateAndFinishedLobbies() {
	first := s.createLobby()
	s.random.QueueString("PRIV01", "PUB002")
	_, err := s.registry.Create("p3", "Cara", "Secret", false)
	s.Require().NoError(err)
	second, err := s.registry.Create("p4", "Dan", "Second", true)
	s.Require().NoError(err)

	listing := s.registry.Listing()
	s.Require().Len(listing, 2)
	s.Equal(first.ID(), listing[0].ID)
	s.Equal(second.ID(), listing[1].ID)

	s.startGame(first, "p2")
	s.Len(s.registry.Listing(), 2)

	s.Require().NoError(first.Remove("p2"))
	s.Require().Equal(model.LobbyStateFinished, first.State())
	listing = s.registry.Listing()
	s.Require().Len(listing, 1)
	s.Equal(second.ID(), listing[0].ID)

	s.advance(GameEndResetDelay)
	s.Len(s.registry.Listing(), 2)
}

func (s *LobbySuite) TestDestroyRemovesLobby() {
	l := s.createLobby()
	var destroyed []model.LobbyID
	s.registry.OnDestroyed = func(d *Lobby) { destroyed = append(destroyed, d.ID()) }
	s.registry.TakeListingChanged()

	s.True(s.registry.Destroy(l.ID()))
	s.False(s.registry.Destroy(l.ID()))

	_, ok := s.registry.GetByCode("ABC123")
	s.False(ok)
	s.Empty(s.registry.Listing())
	s.Equal([]model.LobbyID{l.ID()}, destroyed)
	s.True(s.registry.TakeListingChanged())
}
