package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	nodeErr error
	once    sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Server and worker must use distinct node IDs so task ids never collide.
// Only the first call to Init or New decides the node.
func Init(nodeID int64) error {
	once.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	return nodeErr
}

// New generates a new globally unique, time-ordered int64 ID.
// Processes that never called Init (offline tools, tests) use node 0.
func New() int64 {
	if err := Init(0); err != nil {
		panic(fmt.Sprintf("snowflake node not initialized: %v", err))
	}
	return node.Generate().Int64()
}
