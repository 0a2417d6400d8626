package core

import (
	"sync"

	"github.com/spaghettifunk/penumbra/engine/containers"
)

const AVG_COUNT uint8 = 30

type MetricsState struct {
	MStimes            *containers.RingQueue[float64]
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			MStimes: containers.NewRingQueue[float64](int(AVG_COUNT)),
		}
	})
	return nil
}

func MetricsUpdate(frame_elapsed_time float64) {
	// Calculate frame ms average
	frame_ms := (frame_elapsed_time * 1000.0)
	metricsState.MStimes.Enqueue(frame_ms)
	if metricsState.MStimes.IsFull() {
		sum := float64(0)
		for !metricsState.MStimes.IsEmpty() {
			ms, _ := metricsState.MStimes.Dequeue()
			sum += ms
		}
		metricsState.MSavg = sum / float64(AVG_COUNT)
	}

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frame_ms
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all Frames.
	metricsState.Frames++
}

func MetricsFPS() float64 {
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	return metricsState.MSavg
}

func MetricsFrame() (float64, float64) {
	return metricsState.FPS, metricsState.MSavg
}
