package main

import (
	"bytes"
	"crypto/sha256"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tessera-labs/go-tessera/config"
	"github.com/tessera-labs/go-tessera/core/types"
	"github.com/tessera-labs/go-tessera/crypto"
	"github.com/tessera-labs/go-tessera/crypto/address"
	"github.com/tessera-labs/go-tessera/node"
)

const (
	genesisSupply  = 1000000000000
	validatorStake = 1000000000
	networkNodes   = 3
)

// devNodeKey derives a deterministic validator key for local networks.
// Every node derives the same key set, so all nodes agree on genesis.
func devNodeKey(nodeID int) (crypto.PrivateKey, error) {
	seed := fmt.Sprintf("tessera-development-node-key-%d-2026", nodeID)
	hash := sha256.Sum256([]byte(seed))
	return crypto.GenerateMLDSAKey(bytes.NewReader(hash[:]))
}

// devValidators builds the shared genesis validator set.
func devValidators() ([]*types.Validator, []crypto.PrivateKey, error) {
	validators := make([]*types.Validator, 0, networkNodes)
	keys := make([]crypto.PrivateKey, 0, networkNodes)

	for nodeID := 1; nodeID <= networkNodes; nodeID++ {
		key, err := devNodeKey(nodeID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive key for node %d: %w", nodeID, err)
		}

		addr, err := address.Generate(key.PublicKey().Bytes())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive address for node %d: %w", nodeID, err)
		}
		now := time.Now().Unix()
		validators = append(validators, &types.Validator{
			Address:   addr,
			Pubkey:    key.PublicKey().Bytes(),
			Stake:     validatorStake,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		keys = append(keys, key)
	}

	return validators, keys, nil
}

func main() {
	var nodeID = flag.Int("node", 1, "Node ID (1..3)")
	var gatewayAddr = flag.String("gateway", "", "Wire gateway listen address (default from config)")
	var p2pPort = flag.Int("port", 9000, "P2P listen port")
	var bootstraps = flag.String("bootstrap", "", "Comma-separated bootstrap peers")
	var dataDir = flag.String("data", "", "Data directory (default: ./data-nodeN)")

	flag.Parse()

	if *nodeID < 1 || *nodeID > networkNodes {
		log.Fatalf("Node ID must be between 1 and %d", networkNodes)
	}
	if *dataDir == "" {
		*dataDir = fmt.Sprintf("./data-node%d", *nodeID)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.NodeID = fmt.Sprintf("tessera-node-%d", *nodeID)
	cfg.DataDir = *dataDir
	cfg.Network.ListenPort = *p2pPort
	if *gatewayAddr != "" {
		cfg.Gateway.ListenAddr = *gatewayAddr
	}
	if *bootstraps != "" {
		cfg.Network.BootstrapPeers = strings.Split(*bootstraps, ",")
	}

	validators, keys, err := devValidators()
	if err != nil {
		log.Fatalf("Failed to build genesis validators: %v", err)
	}
	nodeKey := keys[*nodeID-1]
	nodeAddr, err := address.Generate(nodeKey.PublicKey().Bytes())
	if err != nil {
		log.Fatalf("Failed to derive node address: %v", err)
	}

	log.Printf("Starting Tessera node %d (address %s)", *nodeID, nodeAddr)

	peer, err := node.NewNode(&node.NodeConfig{
		Config:            cfg,
		PrivateKey:        nodeKey,
		GenesisAccount:    nodeAddr,
		GenesisSupply:     genesisSupply,
		GenesisValidators: validators,
	})
	if err != nil {
		log.Fatalf("Failed to initialize node: %v", err)
	}

	if err := peer.Start(); err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}
	log.Printf("Gateway listening on %s", peer.GatewayAddr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-sig:
			log.Printf("Shutting down node %d", *nodeID)
			if err := peer.Stop(); err != nil {
				log.Printf("Error stopping node: %v", err)
			}
			return
		case <-statusTicker.C:
			printStatus(peer)
		}
	}
}

func printStatus(peer *node.Node) {
	status := peer.Status()
	log.Printf("Status: height=%v pending=%v accounts=%v peers=%v",
		status["height"], status["pending_transactions"],
		status["account_count"], status["peers"])
}
