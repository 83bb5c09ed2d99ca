package netsync

import (
	"github.com/thoas/go-funk"

	"pocket-poker/models"
)

// roster is the ordered list of joined peers. The host is always first.
type roster struct {
	peers []models.LobbyPeer
}

func newRoster(host models.LobbyPeer) *roster {
	host.IsHost = true
	return &roster{peers: []models.LobbyPeer{host}}
}

func (r *roster) has(id string) bool {
	return funk.Find(r.peers, func(p models.LobbyPeer) bool { return p.ID == id }) != nil
}

func (r *roster) add(p models.LobbyPeer) {
	r.peers = append(r.peers, p)
}

func (r *roster) remove(id string) bool {
	before := len(r.peers)
	r.peers = funk.Filter(r.peers, func(p models.LobbyPeer) bool {
		return p.ID != id || p.IsHost
	}).([]models.LobbyPeer)
	return len(r.peers) != before
}

// remote lists joined peers other than the host.
func (r *roster) remote() []models.LobbyPeer {
	return funk.Filter(r.peers, func(p models.LobbyPeer) bool {
		return !p.IsHost
	}).([]models.LobbyPeer)
}

func (r *roster) list() []models.LobbyPeer {
	return append([]models.LobbyPeer(nil), r.peers...)
}

func (r *roster) len() int {
	return len(r.peers)
}
