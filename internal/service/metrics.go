package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var emailsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mail_emails_sent_total",
		Help: "Total number of emails delivered to the SMTP server by kind.",
	},
	[]string{"kind"},
)
