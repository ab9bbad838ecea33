// Package metrics exposes the router's live state as Prometheus gauges:
// connected-client count, per-originator multicast queue depth, and
// modify tickets currently in flight. Grounded on
// runZeroInc-conniver/pkg/exporter/exporter.go's Describe/Collect shape.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements prometheus.Collector over counters the router
// updates as clients connect, disconnect, and exchange modify tickets.
// Unlike the teacher's connection-keyed TCPInfoCollector, which queries
// each socket lazily at scrape time, these are push-updated plain
// counters: the values in question (client count, queue depth, ticket
// count) have no syscall backing them to query lazily.
type Collector struct {
	mu sync.Mutex

	clients         int
	queuedJobs      int
	ticketsInFlight int

	clientsDesc *prometheus.Desc
	queueDesc   *prometheus.Desc
	ticketsDesc *prometheus.Desc
}

func New() *Collector {
	return &Collector{
		clientsDesc: prometheus.NewDesc(
			"mds_connected_clients", "Number of currently connected clients.", nil, nil),
		queueDesc: prometheus.NewDesc(
			"mds_multicast_queue_depth", "Sum of all clients' pending multicast job queues.", nil, nil),
		ticketsDesc: prometheus.NewDesc(
			"mds_modify_tickets_in_flight", "Modify-rendezvous tickets currently awaiting a reply.", nil, nil),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.clientsDesc
	descs <- c.queueDesc
	descs <- c.ticketsDesc
}

func (c *Collector) Collect(out chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out <- prometheus.MustNewConstMetric(c.clientsDesc, prometheus.GaugeValue, float64(c.clients))
	out <- prometheus.MustNewConstMetric(c.queueDesc, prometheus.GaugeValue, float64(c.queuedJobs))
	out <- prometheus.MustNewConstMetric(c.ticketsDesc, prometheus.GaugeValue, float64(c.ticketsInFlight))
}

func (c *Collector) ClientConnected() {
	c.mu.Lock()
	c.clients++
	c.mu.Unlock()
}

func (c *Collector) ClientDisconnected() {
	c.mu.Lock()
	c.clients--
	c.mu.Unlock()
}

func (c *Collector) MulticastQueued() {
	c.mu.Lock()
	c.queuedJobs++
	c.mu.Unlock()
}

func (c *Collector) MulticastDequeued() {
	c.mu.Lock()
	c.queuedJobs--
	c.mu.Unlock()
}

func (c *Collector) TicketOpened() {
	c.mu.Lock()
	c.ticketsInFlight++
	c.mu.Unlock()
}

func (c *Collector) TicketClosed() {
	c.mu.Lock()
	c.ticketsInFlight--
	c.mu.Unlock()
}
