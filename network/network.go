// Package network is the thin facade the node uses to reach the p2p
// layer without depending on libp2p types directly.
package network

import (
	"fmt"

	"github.com/tessera-labs/go-tessera/config"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/network/p2p"
)

// Network wraps the p2p manager behind a node-facing API.
type Network struct {
	manager *p2p.Manager
}

// New builds the network layer from node configuration.
func New(cfg *config.NetworkConfig) (*Network, error) {
	manager, err := p2p.NewManager(&p2p.Config{
		ListenPort:     cfg.ListenPort,
		BootstrapPeers: cfg.BootstrapPeers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create p2p manager: %w", err)
	}
	return &Network{manager: manager}, nil
}

// SetHandlers registers the inbound callbacks. Must be called before
// Start.
func (n *Network) SetHandlers(onTx func(*types.Transaction), onMsg func(*types.PeerMessage)) {
	n.manager.OnTransaction = onTx
	n.manager.OnPeerMessage = onMsg
}

// Start brings up the p2p services.
func (n *Network) Start() error {
	return n.manager.Start()
}

// Stop tears down the p2p services.
func (n *Network) Stop() error {
	return n.manager.Stop()
}

// BroadcastTransaction gossips an accepted transaction to peers.
func (n *Network) BroadcastTransaction(tx *types.Transaction) error {
	return n.manager.BroadcastTransaction(tx)
}

// BroadcastMessage gossips a peer message to peers.
func (n *Network) BroadcastMessage(msg *types.PeerMessage) error {
	return n.manager.BroadcastMessage(msg)
}

// PeerCount returns the number of connected peers.
func (n *Network) PeerCount() int {
	return n.manager.PeerCount()
}

// Stats returns p2p statistics.
func (n *Network) Stats() map[string]interface{} {
	return n.manager.Stats()
}
