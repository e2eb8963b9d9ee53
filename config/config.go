package config

type Config struct {
	// Node configuration
	NodeID   string `json:"node_id"`
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`

	// Ingress gateway configuration
	Gateway GatewayConfig `json:"gateway"`

	// P2P network configuration
	Network NetworkConfig `json:"network"`

	// Economics / acceptance configuration
	Economics EconomicsConfig `json:"economics"`

	// API configuration
	API APIConfig `json:"api"`
}

type GatewayConfig struct {
	// Address the wire listener binds to, e.g. "0.0.0.0:7878"
	ListenAddr string `json:"listen_addr"`

	// Outbox capacities. Bounded on purpose: a full outbox stalls the
	// producing connection, not the node.
	TxOutboxSize  int `json:"tx_outbox_size"`
	MsgOutboxSize int `json:"msg_outbox_size"`

	// Maximum accepted request payload in bytes.
	MaxFrameBytes int `json:"max_frame_bytes"`

	// Maximum concurrently handled connections.
	MaxConns int `json:"max_conns"`

	// Accept-side rate limiting (connections per second, burst).
	AcceptRate  float64 `json:"accept_rate"`
	AcceptBurst int     `json:"accept_burst"`
}

type NetworkConfig struct {
	ListenPort     int      `json:"listen_port"`
	BootstrapPeers []string `json:"bootstrap_peers"`
	MaxPeers       int      `json:"max_peers"`
	EnableP2P      bool     `json:"enable_p2p"`
}

type EconomicsConfig struct {
	MinTransfer int64 `json:"min_transfer"`
	MinGasPrice int64 `json:"min_gas_price"`
	MaxTxPool   int   `json:"max_tx_pool"`
}

type APIConfig struct {
	RESTAddr   string `json:"rest_addr"`
	EnableAPI  bool   `json:"enable_api"`
	EnableCORS bool   `json:"enable_cors"`
}

// Load returns a default configuration
// TODO: Add file-based configuration loading
func Load() (*Config, error) {
	return &Config{
		NodeID:   "tessera-node",
		DataDir:  "./data",
		LogLevel: "info",
		Gateway: GatewayConfig{
			ListenAddr:    "0.0.0.0:7878",
			TxOutboxSize:  1000,
			MsgOutboxSize: 1000,
			MaxFrameBytes: 1024 * 1024, // 1MB
			MaxConns:      512,
			AcceptRate:    100,
			AcceptBurst:   200,
		},
		Network: NetworkConfig{
			ListenPort:     9000,
			BootstrapPeers: []string{},
			MaxPeers:       50,
			EnableP2P:      true,
		},
		Economics: EconomicsConfig{
			MinTransfer: 1,
			MinGasPrice: 1000,
			MaxTxPool:   10000,
		},
		API: APIConfig{
			RESTAddr:   ":8080",
			EnableAPI:  true,
			EnableCORS: true,
		},
	}, nil
}
