package sse

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/service"
)

func TestHubPublish(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "clients"})
	hub := NewHub(nil, gauge)

	all := NewClient("u1", 0)
	mine := NewClient("u2", 7)
	other := NewClient("u3", 8)
	for _, c := range []*Client{all, mine, other} {
		hub.Register(c)
	}
	assert.Equal(t, 3, hub.Len())
	assert.Equal(t, 3.0, testutil.ToFloat64(gauge))

	hub.Publish(service.Event{Type: service.EventDocumentChanged, ProjectID: 7, Kind: "part", ID: 3, Action: "uploaded"})

	for _, c := range []*Client{all, mine} {
		require.Len(t, c.Events, 1)
		ev := <-c.Events
		assert.Equal(t, service.EventDocumentChanged, ev.EventType)
		var decoded service.Event
		require.NoError(t, json.Unmarshal([]byte(ev.Data), &decoded))
		assert.Equal(t, uint(3), decoded.ID)
	}
	assert.Empty(t, other.Events)

	hub.Unregister(mine.ID)
	hub.Unregister(mine.ID)
	_, open := <-mine.Events
	assert.False(t, open)
	assert.Equal(t, 2, hub.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(gauge))
}

func TestHubPublish_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, nil)
	c := &Client{ID: "slow", Events: make(chan Event, 1)}
	hub.Register(c)

	hub.Publish(service.Event{Type: service.EventTreeChanged})
	hub.Publish(service.Event{Type: service.EventTreeChanged})
	assert.Len(t, c.Events, 1)
}
