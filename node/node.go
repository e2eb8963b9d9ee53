// Package node assembles a running Tessera peer: world state over
// persistent storage, the wire ingress gateway, the transaction pool,
// the p2p network and the read-only REST API.
package node

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/tessera-labs/go-tessera/api"
	"github.com/tessera-labs/go-tessera/config"
	"github.com/tessera-labs/go-tessera/core/state"
	"github.com/tessera-labs/go-tessera/core/transaction"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/crypto"
	"github.com/tessera-labs/go-tessera/crypto/address"
	"github.com/tessera-labs/go-tessera/gateway"
	"github.com/tessera-labs/go-tessera/network"
	"github.com/tessera-labs/go-tessera/query"
	"github.com/tessera-labs/go-tessera/storage"
)

// Node is a full Tessera peer.
type Node struct {
	config     *config.Config
	worldState *state.WorldState
	store      *storage.Store

	pool        *transaction.Pool
	txValidator *transaction.Validator

	gateway *gateway.Server
	apiSrv  *api.Server
	network *network.Network

	// Outboxes feeding the pipelines behind the gateway. The node owns
	// both channels; the gateway only sends into them.
	txOutbox  chan *types.Transaction
	msgOutbox chan *types.PeerMessage

	nodePrivateKey crypto.PrivateKey
	nodeAddress    string

	isRunning bool
	mu        sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NodeConfig bundles node construction parameters.
type NodeConfig struct {
	Config            *config.Config
	PrivateKey        crypto.PrivateKey
	GenesisAccount    string
	GenesisSupply     int64
	GenesisValidators []*types.Validator
}

// NewNode wires a peer together. Nothing starts running until Start.
func NewNode(nodeConfig *NodeConfig) (*Node, error) {
	if nodeConfig == nil {
		return nil, fmt.Errorf("node config cannot be nil")
	}
	cfg := nodeConfig.Config

	nodeAddress, err := address.Generate(nodeConfig.PrivateKey.PublicKey().Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to derive node address: %w", err)
	}

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	worldState := state.NewWorldState()
	worldState.SetPersister(store)

	genesisAccount := nodeConfig.GenesisAccount
	if genesisAccount == "" {
		genesisAccount = nodeAddress
	}
	if err := worldState.InitializeGenesis(genesisAccount, nodeConfig.GenesisSupply, nodeConfig.GenesisValidators); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize genesis: %w", err)
	}

	pool := transaction.NewPool(cfg.Economics.MaxTxPool, cfg.Economics.MinGasPrice)
	txValidator := transaction.NewValidator(cfg)

	txOutbox := make(chan *types.Transaction, cfg.Gateway.TxOutboxSize)
	msgOutbox := make(chan *types.PeerMessage, cfg.Gateway.MsgOutboxSize)

	gw := gateway.NewServer(cfg.Gateway, &gateway.PeerContext{
		State:     worldState,
		TxOutbox:  txOutbox,
		MsgOutbox: msgOutbox,
		Accept:    txValidator.Accept,
		Queries:   query.NewEngine(),
	})

	ctx, cancel := context.WithCancel(context.Background())

	n := &Node{
		config:         cfg,
		worldState:     worldState,
		store:          store,
		pool:           pool,
		txValidator:    txValidator,
		gateway:        gw,
		txOutbox:       txOutbox,
		msgOutbox:      msgOutbox,
		nodePrivateKey: nodeConfig.PrivateKey,
		nodeAddress:    nodeAddress,
		ctx:            ctx,
		cancel:         cancel,
	}

	if cfg.Network.EnableP2P {
		net, err := network.New(&cfg.Network)
		if err != nil {
			cancel()
			store.Close()
			return nil, fmt.Errorf("failed to create p2p network: %w", err)
		}
		net.SetHandlers(n.handleGossipTransaction, n.handleGossipMessage)
		n.network = net
	}

	if cfg.API.EnableAPI {
		n.apiSrv = api.NewServer(worldState, pool, cfg.API.RESTAddr, cfg.API.EnableCORS)
	}

	return n, nil
}

// Start brings the peer online: p2p first, then the outbox consumers,
// then the ingress gateway and the REST API.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.isRunning {
		return fmt.Errorf("node is already running")
	}

	if n.network != nil {
		if err := n.network.Start(); err != nil {
			return fmt.Errorf("failed to start p2p network: %w", err)
		}
	}

	n.wg.Add(2)
	go n.transactionOutboxLoop()
	go n.messageOutboxLoop()

	if err := n.gateway.Start(); err != nil {
		return fmt.Errorf("failed to start ingress gateway: %w", err)
	}

	if n.apiSrv != nil {
		go func() {
			if err := n.apiSrv.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("API server stopped: %v", err)
			}
		}()
	}

	n.isRunning = true
	log.Printf("Node started: address=%s gateway=%s height=%d",
		n.nodeAddress, n.config.Gateway.ListenAddr, n.worldState.GetHeight())
	return nil
}

// Stop shuts the peer down in reverse start order. The outboxes are
// closed only after the gateway has stopped producing into them.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.isRunning {
		return nil
	}

	if err := n.gateway.Stop(); err != nil {
		log.Printf("Error stopping gateway: %v", err)
	}

	close(n.txOutbox)
	close(n.msgOutbox)

	n.cancel()
	n.wg.Wait()

	if n.apiSrv != nil {
		if err := n.apiSrv.Stop(); err != nil {
			log.Printf("Error stopping API server: %v", err)
		}
	}

	if n.network != nil {
		if err := n.network.Stop(); err != nil {
			log.Printf("Error stopping p2p network: %v", err)
		}
	}

	if err := n.store.Close(); err != nil {
		log.Printf("Error closing storage: %v", err)
	}

	n.isRunning = false
	log.Printf("Node stopped")
	return nil
}

// transactionOutboxLoop is the single consumer of the transaction
// outbox. Every transaction arriving here has already passed
// acceptance in the gateway; it enters the pool and is gossiped.
func (n *Node) transactionOutboxLoop() {
	defer n.wg.Done()

	for tx := range n.txOutbox {
		if err := n.pool.Add(tx); err != nil {
			log.Printf("Transaction %s not pooled: %v", tx.Hash, err)
			continue
		}
		if n.network != nil {
			if err := n.network.BroadcastTransaction(tx); err != nil {
				log.Printf("Failed to broadcast transaction %s: %v", tx.Hash, err)
			}
		}
	}
}

// messageOutboxLoop is the single consumer of the peer message outbox.
// Block announcements are applied to the world state; everything is
// forwarded to the p2p layer.
func (n *Node) messageOutboxLoop() {
	defer n.wg.Done()

	for msg := range n.msgOutbox {
		if msg.Kind == types.MsgBlock {
			n.applyBlockMessage(msg)
		}
		if n.network != nil {
			if err := n.network.BroadcastMessage(msg); err != nil {
				log.Printf("Failed to broadcast %s message: %v", msg.Kind, err)
			}
		}
	}
}

func (n *Node) applyBlockMessage(msg *types.PeerMessage) {
	block, err := types.DecodeBlock(msg.Data)
	if err != nil {
		log.Printf("Ignoring undecodable block announcement from %s: %v", msg.From, err)
		return
	}
	if err := n.worldState.AddBlock(block); err != nil {
		log.Printf("Rejected block %d from %s: %v", block.Header.Index, msg.From, err)
		return
	}
	for _, tx := range block.Transactions {
		// Evict by recomputed hash: pool keys are set during
		// acceptance and the wire-supplied Hash field is untrusted.
		id, err := tx.ComputeHash()
		if err != nil {
			log.Printf("Skipping pool eviction for malformed block transaction: %v", err)
			continue
		}
		n.pool.Remove(id)
	}
	log.Printf("Applied block %d (%d txs), height now %d",
		block.Header.Index, len(block.Transactions), n.worldState.GetHeight())
}

// handleGossipTransaction processes transactions arriving over pubsub.
// Gossip peers are untrusted, so acceptance runs again here.
func (n *Node) handleGossipTransaction(tx *types.Transaction) {
	if err := n.txValidator.Accept(tx); err != nil {
		log.Printf("Rejected gossip transaction: %v", err)
		return
	}
	if err := n.pool.Add(tx); err != nil {
		log.Printf("Gossip transaction %s not pooled: %v", tx.Hash, err)
	}
}

// handleGossipMessage processes peer messages arriving over pubsub.
func (n *Node) handleGossipMessage(msg *types.PeerMessage) {
	if msg.Kind == types.MsgBlock {
		n.applyBlockMessage(msg)
	}
}

// GatewayAddr returns the bound gateway listen address.
func (n *Node) GatewayAddr() string {
	if addr := n.gateway.Addr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Status reports a snapshot of the node for operator tooling.
func (n *Node) Status() map[string]interface{} {
	status := n.worldState.GetStatus()
	status["node_address"] = n.nodeAddress
	status["pending_transactions"] = n.pool.Size()
	status["uptime_unix"] = time.Now().Unix()
	if n.network != nil {
		status["peers"] = n.network.PeerCount()
	}
	return status
}
