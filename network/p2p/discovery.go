package p2p

import (
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/libp2p/go-libp2p/p2p/discovery/routing"
	"github.com/libp2p/go-libp2p/p2p/discovery/util"
)

// mdnsNotifee handles peers found on the local network.
type mdnsNotifee struct {
	m *Manager
}

func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == n.m.host.ID() {
		return
	}
	log.Debugw("mdns discovered peer", "peer", pi.ID.String())
	go n.m.connectWithRetry(pi, 1)
}

// startMDNSDiscovery starts local network peer discovery.
func (m *Manager) startMDNSDiscovery() {
	service := mdns.NewMdnsService(m.host, discoveryTag, &mdnsNotifee{m: m})
	if err := service.Start(); err != nil {
		log.Warnw("failed to start mdns discovery", "cause", err)
		return
	}
	log.Info("mdns discovery started")
}

// startDHTDiscovery advertises this peer in the DHT and periodically
// looks for other peers advertising the same tag.
func (m *Manager) startDHTDiscovery() {
	routingDiscovery := routing.NewRoutingDiscovery(m.dht)
	util.Advertise(m.ctx, routingDiscovery, discoveryTag)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				peerChan, err := routingDiscovery.FindPeers(m.ctx, discoveryTag)
				if err != nil {
					log.Warnw("dht peer discovery failed", "cause", err)
					continue
				}
				for pi := range peerChan {
					if pi.ID == m.host.ID() || len(pi.Addrs) == 0 {
						continue
					}
					if m.host.Network().Connectedness(pi.ID) != network.Connected {
						go m.connectWithRetry(pi, 1)
					}
				}
			}
		}
	}()

	log.Info("dht discovery started")
}
