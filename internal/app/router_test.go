package app

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Relay/internal/app/mocks"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type routerFixture struct {
	reg      *Registry
	presence *Presence
	router   *Router
	clock    *clock.Mock
	conns    map[core.SessionID]*fakeConn
}

func newRouterFixture(t *testing.T, recorder Recorder) *routerFixture {
	t.Helper()
	reg, presence := newPresence(PolicyAllow)
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 14, 7, 0, 0, time.UTC))
	return &routerFixture{
		reg:      reg,
		presence: presence,
		clock:    mock,
		conns:    map[core.SessionID]*fakeConn{},
		router: &Router{
			Registry:   reg,
			Emitter:    presence.Emitter,
			Recorder:   recorder,
			Clock:      mock,
			Location:   time.UTC,
			MaxTextLen: 100,
		},
	}
}

func (f *routerFixture) connect(sid core.SessionID) *fakeConn {
	c := &fakeConn{}
	f.conns[sid] = c
	f.reg.Bind(sid, c)
	return c
}

func (f *routerFixture) join(t *testing.T, sid core.SessionID, name domain.DisplayName) *fakeConn {
	t.Helper()
	c := f.connect(sid)
	_, err := f.presence.OnJoin(sid, name)
	require.NoError(t, err)
	return c
}

func (f *routerFixture) count(t *testing.T, typ string) map[core.SessionID]int {
	out := map[core.SessionID]int{}
	for sid, c := range f.conns {
		out[sid] = len(c.ofType(t, typ))
	}
	return out
}

func TestRouter_Delivers_To_Recipient_Only(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.join(t, "c1", "alice")
	bob := f.join(t, "c2", "bob")
	f.join(t, "c3", "carol")

	outcome := f.router.Route("c1", "bob", "hi")

	req.Equal(Delivered, outcome)
	msgs := bob.ofType(t, core.TypeNewMessage)
	req.Len(msgs, 1)
	req.Equal("alice", msgs[0].From)
	req.Equal("hi", msgs[0].Text)
	req.Equal("14:07", msgs[0].Time)
	req.Equal(map[core.SessionID]int{"c1": 0, "c2": 1, "c3": 0}, f.count(t, core.TypeNewMessage))
}

func TestRouter_Unknown_Recipient_Is_Silent(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	alice := f.join(t, "c1", "alice")
	before := len(alice.events(t))

	outcome := f.router.Route("c1", "nobody", "hello?")

	req.Equal(DroppedUnknownRecipient, outcome)
	req.Len(alice.events(t), before)
}

func TestRouter_Unjoined_Sender_Is_Silent(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	bob := f.join(t, "c2", "bob")
	f.connect("c1")

	outcome := f.router.Route("c1", "bob", "hi")

	req.Equal(DroppedUnjoinedSender, outcome)
	req.Empty(bob.ofType(t, core.TypeNewMessage))
}

func TestRouter_Recipient_Gone_After_Leave(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.join(t, "c1", "alice")
	f.join(t, "c2", "bob")
	f.presence.OnLeave("c2")

	req.Equal(DroppedUnknownRecipient, f.router.Route("c1", "bob", "still there?"))
}

func TestRouter_Invalid_Text(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.join(t, "c1", "alice")
	bob := f.join(t, "c2", "bob")

	req.Equal(DroppedInvalid, f.router.Route("c1", "bob", "   "))
	req.Equal(DroppedInvalid, f.router.Route("c1", "bob", strings.Repeat("x", 101)))
	req.Empty(bob.ofType(t, core.TypeNewMessage))
}

func TestRouter_Full_Outbox(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.join(t, "c1", "alice")
	bob := f.join(t, "c2", "bob")
	bob.mu.Lock()
	bob.full = true
	bob.mu.Unlock()

	req.Equal(DroppedBackpressure, f.router.Route("c1", "bob", "hi"))
	// The default policy keeps the connection open
	req.False(bob.isClosed())
}

func TestRouter_Hands_Delivered_Envelope_To_Recorder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)
	f := newRouterFixture(t, recorder)
	f.join(t, "c1", "alice")
	f.join(t, "c2", "bob")

	// Given the recorder expects exactly the delivered envelope
	recorder.EXPECT().RecordMessage(gomock.Any()).Do(func(env domain.Envelope) {
		req.Equal(domain.DisplayName("alice"), env.From)
		req.Equal(domain.DisplayName("bob"), env.To)
		req.Equal("hi", env.Text)
		req.Equal("14:07", env.Time)
		req.Equal(f.clock.Now(), env.SentAt)
	}).Times(1)

	// When one message is delivered and one is dropped
	req.Equal(Delivered, f.router.Route("c1", "bob", "  hi "))
	req.Equal(DroppedUnknownRecipient, f.router.Route("c1", "dave", "hi"))
}

func TestRouter_Duplicate_Names_Route_To_First_Holder(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)
	f.join(t, "c1", "alice")
	first := f.join(t, "c2", "bob")
	second := f.join(t, "c3", "bob")

	req.Equal(Delivered, f.router.Route("c1", "bob", "which one?"))

	req.Len(first.ofType(t, core.TypeNewMessage), 1)
	req.Empty(second.ofType(t, core.TypeNewMessage))
}

// Walks the alice/bob exchange from connect to disconnect.
func TestRelay_Alice_Bob_Scenario(t *testing.T) {
	req := require.New(t)
	f := newRouterFixture(t, nil)

	c1 := f.join(t, "c1", "alice")
	c2 := f.join(t, "c2", "bob")
	req.Equal(Delivered, f.router.Route("c1", "bob", "hi"))

	ev1 := c1.events(t)
	req.Len(ev1, 2)
	req.Equal(wireEvent{Type: core.TypeOnlineUsers, Users: []string{"alice"}}, ev1[0])
	req.Equal(wireEvent{Type: core.TypeUserJoined, Name: "bob"}, ev1[1])

	ev2 := c2.events(t)
	req.Len(ev2, 2)
	req.Equal(wireEvent{Type: core.TypeOnlineUsers, Users: []string{"alice", "bob"}}, ev2[0])
	req.Equal(wireEvent{Type: core.TypeNewMessage, From: "alice", Text: "hi", Time: "14:07"}, ev2[1])

	f.presence.OnLeave("c2")
	ev1 = c1.events(t)
	req.Len(ev1, 3)
	req.Equal(wireEvent{Type: core.TypeUserLeft, Name: "bob"}, ev1[2])
}
