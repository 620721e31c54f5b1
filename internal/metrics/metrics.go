package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application counters. Each instance owns its registry
// so several routers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Requests       *prometheus.CounterVec
	MessagesSent   prometheus.Counter
	FollowRequests prometheus.Counter
	Unfollows      prometheus.Counter
	Likes          prometheus.Counter
	Signups        prometheus.Counter
	LoginFailures  prometheus.Counter
	AccessDenied   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_http_requests_total",
				Help: "Total number of HTTP requests by route and status class",
			},
			[]string{"route", "status"},
		),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warbler_messages_created_total",
			Help: "Total number of messages posted",
		}),
		FollowRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warbler_follows_total",
			Help: "Total number of successful follow requests",
		}),
		Unfollows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warbler_unfollows_total",
			Help: "Total number of successful unfollow requests",
		}),
		Likes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warbler_like_toggles_total",
			Help: "Total number of like toggles",
		}),
		Signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warbler_signups_total",
			Help: "Total number of accounts created",
		}),
		LoginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warbler_login_failures_total",
			Help: "Total number of rejected login attempts",
		}),
		AccessDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warbler_access_denied_total",
			Help: "Total number of requests refused by the authorization gate",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.MessagesSent,
		m.FollowRequests,
		m.Unfollows,
		m.Likes,
		m.Signups,
		m.LoginFailures,
		m.AccessDenied,
	)
	return m
}

// Middleware counts every request by its route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, statusClass(c.Writer.Status())).Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
