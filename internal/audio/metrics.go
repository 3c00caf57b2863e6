package audio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	muteTogglesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_mute_toggles_total",
			Help: "Total number of microphone mute state changes",
		},
	)

	volumeSetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_volume_sets_total",
			Help: "Total number of output volume changes",
		},
	)

	adapterErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioremoted_adapter_errors_total",
			Help: "Total number of failed OS audio device calls",
		},
	)

	currentVolume = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audioremoted_output_volume",
			Help: "Current output volume scalar in [0,1]",
		},
	)

	microphoneMuted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audioremoted_microphone_muted",
			Help: "Whether the microphone is muted (1) or live (0)",
		},
	)
)

func recordVolumeSet(v float64) {
	volumeSetsTotal.Inc()
	currentVolume.Set(v)
}

func recordMuteToggled(muted bool) {
	muteTogglesTotal.Inc()
	if muted {
		microphoneMuted.Set(1)
	} else {
		microphoneMuted.Set(0)
	}
}

func recordAdapterError() {
	adapterErrorsTotal.Inc()
}
