package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node    *snowflake.Node
	initErr error
	once    sync.Once
)

// Init sets up the Snowflake node. The server, worker and CLI use distinct node IDs.
// Only the first call has an effect.
func Init(nodeID int64) error {
	once.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
	})
	return initErr
}

// New returns a time-ordered unique ID. Falls back to node 0 if Init was never called.
func New() int64 {
	once.Do(func() {
		node, initErr = snowflake.NewNode(0)
	})
	return node.Generate().Int64()
}

// NewString returns New formatted in base 10, used for request IDs.
func NewString() string {
	return strconv.FormatInt(New(), 10)
}
