// Package metrics provides Prometheus metrics for the supervisor, the archive
// cleaner and ffmpeg progress.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ffmpegBitrate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qaspar",
		Subsystem: "ffmpeg",
		Name:      "bitrate_kbps",
		Help:      "Current ffmpeg output bitrate in kbit/s",
	}, []string{"process"})

	ffmpegSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qaspar",
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "FFmpeg processing speed multiplier",
	}, []string{"process"})

	ffmpegOutTime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qaspar",
		Subsystem: "ffmpeg",
		Name:      "out_time_seconds",
		Help:      "Media time processed by ffmpeg",
	}, []string{"process"})

	// Local cache for SSE exporter access.
	ffmpegCache   = make(map[string]*FFmpegProcessMetrics)
	ffmpegCacheMu sync.RWMutex
)

// FFmpegProcessMetrics holds current metric values for a process.
type FFmpegProcessMetrics struct {
	Bitrate float64
	Speed   float64
	OutTime float64
}

// SetFFmpegBitrate sets the current bitrate of a process.
func SetFFmpegBitrate(process string, kbps float64) {
	ffmpegBitrate.WithLabelValues(process).Set(kbps)
	updateCache(process, func(m *FFmpegProcessMetrics) { m.Bitrate = kbps })
}

// SetFFmpegSpeed sets the processing speed of a process.
func SetFFmpegSpeed(process string, speed float64) {
	ffmpegSpeed.WithLabelValues(process).Set(speed)
	updateCache(process, func(m *FFmpegProcessMetrics) { m.Speed = speed })
}

// SetFFmpegOutTime sets the processed media time of a process.
func SetFFmpegOutTime(process string, seconds float64) {
	ffmpegOutTime.WithLabelValues(process).Set(seconds)
	updateCache(process, func(m *FFmpegProcessMetrics) { m.OutTime = seconds })
}

// DeleteFFmpegMetrics removes all metrics for a process.
func DeleteFFmpegMetrics(process string) {
	ffmpegBitrate.DeleteLabelValues(process)
	ffmpegSpeed.DeleteLabelValues(process)
	ffmpegOutTime.DeleteLabelValues(process)

	ffmpegCacheMu.Lock()
	delete(ffmpegCache, process)
	ffmpegCacheMu.Unlock()
}

// GetFFmpegMetrics returns current metric values for a process.
func GetFFmpegMetrics(process string) *FFmpegProcessMetrics {
	ffmpegCacheMu.RLock()
	defer ffmpegCacheMu.RUnlock()
	if m, ok := ffmpegCache[process]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllFFmpegMetrics returns metrics for all processes that reported progress.
func GetAllFFmpegMetrics() map[string]*FFmpegProcessMetrics {
	ffmpegCacheMu.RLock()
	defer ffmpegCacheMu.RUnlock()
	result := make(map[string]*FFmpegProcessMetrics, len(ffmpegCache))
	for name, m := range ffmpegCache {
		dup := *m
		result[name] = &dup
	}
	return result
}

func updateCache(process string, update func(*FFmpegProcessMetrics)) {
	ffmpegCacheMu.Lock()
	defer ffmpegCacheMu.Unlock()
	m, ok := ffmpegCache[process]
	if !ok {
		m = &FFmpegProcessMetrics{}
		ffmpegCache[process] = m
	}
	update(m)
}
