package app

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Presence turns registry membership changes into userJoined, userLeft and
// onlineUsers events.
type Presence struct {
	Registry *Registry
	Emitter  *Emitter
}

// OnJoin registers name for sid, announces it to every other connection and
// then sends the joiner the online list, which includes the joiner itself.
func (p *Presence) OnJoin(sid core.SessionID, name domain.DisplayName) (JoinResult, error) {
	res, err := p.Registry.Join(sid, name, func(res JoinResult) {
		sent := p.Emitter.Broadcast(res.Others, core.UserJoined(res.Name))
		p.Emitter.Metrics.Presence(core.TypeUserJoined, sent)
		if p.Emitter.Send(sid, res.Self, core.OnlineUsers(res.Names)) == nil {
			p.Emitter.Metrics.Presence(core.TypeOnlineUsers, 1)
		}
	})
	if err != nil {
		log.Info().Err(err).Str("module", "app.presence").Str("sid", string(sid)).Str("name", string(name)).Msg("join refused")
		return JoinResult{}, err
	}
	p.observe()
	log.Info().
		Str("module", "app.presence").
		Str("sid", string(sid)).
		Str("name", string(res.Name)).
		Strs("online", namesToStrings(res.Names)).
		Msg("joined")
	return res, nil
}

// OnLeave drops sid from the registry. A userLeft event goes out only when
// the session had joined, so a repeated call announces nothing.
func (p *Presence) OnLeave(sid core.SessionID) LeaveResult {
	res := p.Registry.Leave(sid, func(res LeaveResult) {
		if !res.Joined {
			return
		}
		sent := p.Emitter.Broadcast(res.Remaining, core.UserLeft(res.Name))
		p.Emitter.Metrics.Presence(core.TypeUserLeft, sent)
	})
	p.observe()
	if res.Joined {
		log.Info().
			Str("module", "app.presence").
			Str("sid", string(sid)).
			Str("name", string(res.Name)).
			Strs("online", namesToStrings(p.Registry.AllNames())).
			Msg("left")
	}
	return res
}

func (p *Presence) observe() {
	p.Emitter.Metrics.SetConnections(p.Registry.Count())
	p.Emitter.Metrics.SetOnlineUsers(p.Registry.OnlineCount())
}

func namesToStrings(names []domain.DisplayName) []string {
	return lo.Map(names, func(n domain.DisplayName, _ int) string { return string(n) })
}
