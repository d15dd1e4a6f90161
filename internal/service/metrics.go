package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	shareIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharebox_share_links_issued_total",
		Help: "Share links issued, by password protection.",
	}, []string{"protected"})

	shareUnlockTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharebox_share_unlock_total",
		Help: "Gate verifications by result (bypass, unlocked, rejected, invalid, error).",
	}, []string{"result"})

	shareCapabilityTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sharebox_download_capabilities_total",
		Help: "Download capability requests by status.",
	}, []string{"status"})
)

func protectedLabel(protected bool) string {
	if protected {
		return "true"
	}
	return "false"
}
