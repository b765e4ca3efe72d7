package routing

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/schema"
)

// RoundRobin rotates through each schema's servers. It is safe for
// concurrent use.
type RoundRobin struct {
	counters sync.Map // schema ID -> *atomic.Uint64
}

// NewRoundRobin creates a RoundRobin selector.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// SelectServer implements request.ServerSelector.
func (r *RoundRobin) SelectServer(s *schema.Schema, _ *schema.Operation) (*schema.Server, error) {
	usable := make([]int, 0, len(s.Servers))
	for i := range s.Servers {
		if strings.TrimSpace(s.Servers[i].URL) != "" {
			usable = append(usable, i)
		}
	}

	switch len(usable) {
	case 0:
		return nil, fmt.Errorf("%w: %s", request.ErrNoServerConfigured, s.ID)
	case 1:
		return &s.Servers[usable[0]], nil
	}

	v, _ := r.counters.LoadOrStore(s.ID, new(atomic.Uint64))
	n := v.(*atomic.Uint64).Add(1) - 1
	return &s.Servers[usable[n%uint64(len(usable))]], nil
}

var _ request.ServerSelector = (*RoundRobin)(nil)
