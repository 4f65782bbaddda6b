package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "creation_messages_published_total",
		Help: "Total number of messages published to RabbitMQ by queue and status.",
	},
	[]string{"queue", "status"},
)
