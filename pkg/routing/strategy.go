package routing

import (
	"fmt"

	"mercator-hq/apigate/pkg/request"
)

// Strategy names accepted by NewSelector.
const (
	StrategyFirst      = "first"
	StrategyRoundRobin = "round_robin"
)

// NewSelector returns the server selector for strategy. An empty strategy
// selects the first server.
func NewSelector(strategy string) (request.ServerSelector, error) {
	switch strategy {
	case StrategyFirst, "":
		return request.FirstServer, nil
	case StrategyRoundRobin:
		return NewRoundRobin(), nil
	default:
		return nil, fmt.Errorf("unknown server selection strategy %q", strategy)
	}
}
