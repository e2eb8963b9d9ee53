// Package p2p manages the libp2p host of a Tessera peer: gossipsub
// topics for transactions and peer messages, DHT and mDNS discovery,
// and bootstrap dialing. It disseminates what the ingress gateway has
// already accepted; it implements no consensus logic of its own.
package p2p

import (
	"context"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	"golang.org/x/time/rate"

	"github.com/tessera-labs/go-tessera/core/types"
)

var log = logging.Logger("p2p")

// PubSub topic names.
const (
	TopicTransactions = "tessera-transactions"
	TopicMessages     = "tessera-messages"

	discoveryTag = "tessera-ledger"
)

// Config holds the p2p listener settings.
type Config struct {
	ListenPort     int
	BootstrapPeers []string
}

// Metrics tracks network counters.
type Metrics struct {
	MessagesReceived   int64
	MessagesSent       int64
	ConnectionAttempts int64
	FailedConnections  int64

	mu sync.Mutex
}

func (m *Metrics) incReceived() {
	m.mu.Lock()
	m.MessagesReceived++
	m.mu.Unlock()
}

func (m *Metrics) incSent() {
	m.mu.Lock()
	m.MessagesSent++
	m.mu.Unlock()
}

func (m *Metrics) incAttempt(failed bool) {
	m.mu.Lock()
	m.ConnectionAttempts++
	if failed {
		m.FailedConnections++
	}
	m.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (m *Metrics) Snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"messages_received":   m.MessagesReceived,
		"messages_sent":       m.MessagesSent,
		"connection_attempts": m.ConnectionAttempts,
		"failed_connections":  m.FailedConnections,
	}
}

// Manager owns the libp2p host and pubsub machinery.
type Manager struct {
	host   host.Host
	ctx    context.Context
	cancel context.CancelFunc
	pubsub *pubsub.PubSub
	dht    *dht.IpfsDHT

	bootstrapPeers []multiaddr.Multiaddr
	listenPort     int

	// Inbound handlers, set before Start.
	OnTransaction func(*types.Transaction)
	OnPeerMessage func(*types.PeerMessage)

	joinedTopics map[string]*pubsub.Topic
	topicsMu     sync.RWMutex

	limiter *rate.Limiter
	metrics *Metrics
}

// NewManager initializes the libp2p host, gossipsub and the DHT.
func NewManager(cfg *Config) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())

	var bootstrapPeers []multiaddr.Multiaddr
	for _, addr := range cfg.BootstrapPeers {
		maddr, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			log.Warnw("invalid bootstrap peer address", "addr", addr, "cause", err)
			continue
		}
		bootstrapPeers = append(bootstrapPeers, maddr)
	}

	h, err := libp2p.New(
		libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.ListenPort)),
		libp2p.NATPortMap(),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create libp2p host: %w", err)
	}

	log.Infow("libp2p host created", "peer_id", h.ID().String(), "addrs", h.Addrs())

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	kademliaDHT, err := dht.New(ctx, h, dht.Mode(dht.ModeServer))
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to create DHT: %w", err)
	}
	if err := kademliaDHT.Bootstrap(ctx); err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("failed to bootstrap DHT: %w", err)
	}

	return &Manager{
		host:           h,
		ctx:            ctx,
		cancel:         cancel,
		pubsub:         ps,
		dht:            kademliaDHT,
		bootstrapPeers: bootstrapPeers,
		listenPort:     cfg.ListenPort,
		joinedTopics:   make(map[string]*pubsub.Topic),
		limiter:        rate.NewLimiter(rate.Limit(100), 200),
		metrics:        &Metrics{},
	}, nil
}

// Start connects to bootstrap peers, starts discovery and subscribes to
// the gossip topics.
func (m *Manager) Start() error {
	m.connectToBootstrapPeers()
	m.startMDNSDiscovery()
	m.startDHTDiscovery()

	if err := m.subscribeToTopics(); err != nil {
		return err
	}

	log.Info("p2p services started")
	return nil
}

// Stop shuts down discovery, topics, the DHT and the host.
func (m *Manager) Stop() error {
	m.cancel()

	m.topicsMu.Lock()
	for name, topic := range m.joinedTopics {
		if err := topic.Close(); err != nil {
			log.Warnw("error closing topic", "topic", name, "cause", err)
		}
	}
	m.topicsMu.Unlock()

	if m.dht != nil {
		if err := m.dht.Close(); err != nil {
			log.Warnw("error closing DHT", "cause", err)
		}
	}

	if err := m.host.Close(); err != nil {
		return fmt.Errorf("error closing libp2p host: %w", err)
	}

	log.Info("p2p services stopped")
	return nil
}

// BroadcastTransaction publishes an accepted transaction.
func (m *Manager) BroadcastTransaction(tx *types.Transaction) error {
	data, err := tx.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode transaction for pubsub: %w", err)
	}
	return m.rateLimitedPublish(TopicTransactions, data)
}

// BroadcastMessage publishes a peer/consensus message.
func (m *Manager) BroadcastMessage(msg *types.PeerMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode peer message for pubsub: %w", err)
	}
	return m.rateLimitedPublish(TopicMessages, data)
}

// HostID returns this node's peer ID.
func (m *Manager) HostID() peer.ID {
	return m.host.ID()
}

// PeerCount returns the number of connected peers.
func (m *Manager) PeerCount() int {
	return len(m.host.Network().Peers())
}

// Stats returns p2p statistics including metrics counters.
func (m *Manager) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"peer_id":         m.host.ID().String(),
		"listen_port":     m.listenPort,
		"connected_peers": m.PeerCount(),
		"bootstrap_peers": len(m.bootstrapPeers),
	}
	for k, v := range m.metrics.Snapshot() {
		stats[k] = v
	}
	return stats
}

// connectToBootstrapPeers dials each configured bootstrap peer with
// retry and exponential backoff.
func (m *Manager) connectToBootstrapPeers() {
	for _, addr := range m.bootstrapPeers {
		pi, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			log.Warnw("invalid bootstrap peer address", "addr", addr.String(), "cause", err)
			continue
		}
		if pi.ID == m.host.ID() {
			continue
		}
		go m.connectWithRetry(*pi, 3)
	}
}

func (m *Manager) connectWithRetry(pi peer.AddrInfo, maxRetries int) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(m.ctx, 10*time.Second)
		err := m.host.Connect(connectCtx, pi)
		connectCancel()

		if err == nil {
			m.metrics.incAttempt(false)
			log.Infow("connected to peer", "peer", pi.ID.String(), "attempt", attempt)
			return
		}

		m.metrics.incAttempt(true)
		log.Warnw("failed to connect to peer", "peer", pi.ID.String(), "attempt", attempt, "cause", err)

		if attempt < maxRetries {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-m.ctx.Done():
				return
			}
		}
	}
}

// getOrJoinTopic returns a cached topic or joins a new one.
func (m *Manager) getOrJoinTopic(topicName string) (*pubsub.Topic, error) {
	m.topicsMu.RLock()
	if topic, exists := m.joinedTopics[topicName]; exists {
		m.topicsMu.RUnlock()
		return topic, nil
	}
	m.topicsMu.RUnlock()

	m.topicsMu.Lock()
	defer m.topicsMu.Unlock()

	if topic, exists := m.joinedTopics[topicName]; exists {
		return topic, nil
	}

	topic, err := m.pubsub.Join(topicName)
	if err != nil {
		return nil, fmt.Errorf("failed to join topic %s: %w", topicName, err)
	}

	m.joinedTopics[topicName] = topic
	return topic, nil
}

func (m *Manager) rateLimitedPublish(topicName string, data []byte) error {
	if !m.limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for topic %s", topicName)
	}

	topic, err := m.getOrJoinTopic(topicName)
	if err != nil {
		return err
	}
	if err := topic.Publish(m.ctx, data); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topicName, err)
	}

	m.metrics.incSent()
	return nil
}

func (m *Manager) subscribeToTopics() error {
	for _, topicName := range []string{TopicTransactions, TopicMessages} {
		topic, err := m.getOrJoinTopic(topicName)
		if err != nil {
			return err
		}
		sub, err := topic.Subscribe()
		if err != nil {
			return fmt.Errorf("failed to subscribe to topic %s: %w", topicName, err)
		}
		go m.readTopic(topicName, sub)
	}
	return nil
}

// readTopic consumes one subscription and forwards decoded values to
// the inbound handlers.
func (m *Manager) readTopic(topicName string, sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(m.ctx)
		if err != nil {
			if m.ctx.Err() == nil {
				log.Warnw("error reading pubsub subscription", "topic", topicName, "cause", err)
			}
			return
		}
		if msg.ReceivedFrom == m.host.ID() {
			continue
		}

		m.metrics.incReceived()

		switch topicName {
		case TopicTransactions:
			tx, err := types.DecodeTransaction(msg.Data)
			if err != nil {
				log.Warnw("dropping malformed gossip transaction", "from", msg.ReceivedFrom.String(), "cause", err)
				continue
			}
			if m.OnTransaction != nil {
				m.OnTransaction(tx)
			}

		case TopicMessages:
			pm, err := types.DecodePeerMessage(msg.Data)
			if err != nil {
				log.Warnw("dropping malformed gossip message", "from", msg.ReceivedFrom.String(), "cause", err)
				continue
			}
			if m.OnPeerMessage != nil {
				m.OnPeerMessage(pm)
			}
		}
	}
}
