package components

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/bootkit/internal/cli/health"
	"github.com/marmos91/bootkit/internal/logger"
	"github.com/marmos91/bootkit/pkg/configbind"
)

// NodeConfig identifies the running node. It binds under "node".
type NodeConfig struct {
	Environment string `config:"environment,required" description:"deployment environment, e.g. production" validate:"max=64"`

	// ID defaults to a random uuid chosen at construction.
	ID string `config:"id" description:"node identifier; random when empty"`

	DataDir string `config:"data-dir" default:"data" description:"directory for node state"`
}

var nodeSchema = configbind.MustSchema[NodeConfig]("node-config")

// Node carries the identity shared by the other components.
type Node struct {
	ID          string
	Environment string
	DataDir     string

	mu        sync.RWMutex
	startedAt time.Time
}

// NewNode creates a node from cfg.
func NewNode(cfg *NodeConfig) *Node {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Node{ID: id, Environment: cfg.Environment, DataDir: cfg.DataDir}
}

// Start creates the data directory and records the start time.
func (n *Node) Start(ctx context.Context) error {
	if err := os.MkdirAll(n.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	n.mu.Lock()
	n.startedAt = time.Now()
	n.mu.Unlock()

	logger.InfoCtx(ctx, "Node started", "node_id", n.ID, "environment", n.Environment, logger.Path(n.DataDir))
	return nil
}

// StartedAt returns when Start completed, or the zero time.
func (n *Node) StartedAt() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.startedAt
}

// Status returns the status document for the node.
func (n *Node) Status() health.Response {
	now := time.Now()
	resp := health.Response{
		Status:    health.StatusStarting,
		Timestamp: now.UTC().Format(time.RFC3339),
		Data: health.Node{
			ID:          n.ID,
			Environment: n.Environment,
			DataDir:     n.DataDir,
			Uptime:      "0s",
		},
	}

	if started := n.StartedAt(); !started.IsZero() {
		uptime := now.Sub(started)
		resp.Status = health.StatusOK
		resp.Data.StartedAt = started.UTC().Format(time.RFC3339)
		resp.Data.Uptime = uptime.Round(time.Second).String()
		resp.Data.UptimeSec = int64(uptime.Seconds())
	}
	return resp
}
