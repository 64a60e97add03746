package app

import (
	"sync"

	"github.com/hearthhq/hearth/internal/store"
)

// trackingGateway counts live subscription handles so teardown can assert
// none leak.
type trackingGateway struct {
	store.Gateway

	mu   sync.Mutex
	live int
}

func newTrackingGateway(gw store.Gateway) *trackingGateway {
	return &trackingGateway{Gateway: gw}
}

func (g *trackingGateway) Subscribe(collection string, q store.Query, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) (store.Subscription, error) {
	sub, err := g.Gateway.Subscribe(collection, q, onSnapshot, onError)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.live++
	g.mu.Unlock()
	return &trackedSub{Subscription: sub, gw: g}, nil
}

func (g *trackingGateway) open() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

type trackedSub struct {
	store.Subscription
	gw   *trackingGateway
	once sync.Once
}

func (s *trackedSub) Close() error {
	s.once.Do(func() {
		s.gw.mu.Lock()
		s.gw.live--
		s.gw.mu.Unlock()
	})
	return s.Subscription.Close()
}
