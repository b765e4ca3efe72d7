package routing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/schema"
)

func TestNewSelector(t *testing.T) {
	for _, name := range []string{"", StrategyFirst, StrategyRoundRobin} {
		sel, err := NewSelector(name)
		require.NoError(t, err, name)
		assert.NotNil(t, sel)
	}

	_, err := NewSelector("random")
	assert.Error(t, err)
}

func TestFirstStrategy(t *testing.T) {
	sel, err := NewSelector(StrategyFirst)
	require.NoError(t, err)

	s := &schema.Schema{ID: "s1", Servers: []schema.Server{{URL: "https://a"}, {URL: "https://b"}}}
	for range 3 {
		srv, err := sel.SelectServer(s, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://a", srv.URL)
	}
}

func TestRoundRobinRotates(t *testing.T) {
	rr := NewRoundRobin()
	s := &schema.Schema{ID: "s1", Servers: []schema.Server{{URL: "https://a"}, {URL: ""}, {URL: "https://c"}}}

	var got []string
	for range 4 {
		srv, err := rr.SelectServer(s, nil)
		require.NoError(t, err)
		got = append(got, srv.URL)
	}
	assert.Equal(t, []string{"https://a", "https://c", "https://a", "https://c"}, got)
}

func TestRoundRobinCountersArePerSchema(t *testing.T) {
	rr := NewRoundRobin()
	s1 := &schema.Schema{ID: "s1", Servers: []schema.Server{{URL: "https://a1"}, {URL: "https://b1"}}}
	s2 := &schema.Schema{ID: "s2", Servers: []schema.Server{{URL: "https://a2"}, {URL: "https://b2"}}}

	srv, _ := rr.SelectServer(s1, nil)
	assert.Equal(t, "https://a1", srv.URL)
	srv, _ = rr.SelectServer(s2, nil)
	assert.Equal(t, "https://a2", srv.URL)
	srv, _ = rr.SelectServer(s1, nil)
	assert.Equal(t, "https://b1", srv.URL)
}

func TestRoundRobinNoServers(t *testing.T) {
	rr := NewRoundRobin()
	_, err := rr.SelectServer(&schema.Schema{ID: "empty", Servers: []schema.Server{{URL: " "}}}, nil)
	assert.ErrorIs(t, err, request.ErrNoServerConfigured)
}

func TestRoundRobinConcurrent(t *testing.T) {
	rr := NewRoundRobin()
	s := &schema.Schema{ID: "s1", Servers: []schema.Server{{URL: "https://a"}, {URL: "https://b"}}}

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv, err := rr.SelectServer(s, nil)
			if err != nil {
				return
			}
			mu.Lock()
			counts[srv.URL]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counts["https://a"])
	assert.Equal(t, 50, counts["https://b"])
}
