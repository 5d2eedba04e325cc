package pattern

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	// AnalysisWindow is the analyser buffer size; each frame reads half of it
	// as time-domain bins.
	AnalysisWindow = 2048

	// MinVoiceFrames is the minimum number of frames a recording must hold.
	MinVoiceFrames = 10

	// MinActiveFrames is the minimum number of frames above the silence floor.
	MinActiveFrames = 5

	// SilenceFloor separates active frames from silence.
	SilenceFloor = 0.01

	// PeakThreshold is the volume a local maximum must exceed to count.
	PeakThreshold = 0.1
)

// AudioFrame is one analysis frame from the capture port.
type AudioFrame struct {
	At     time.Time
	Volume float64
}

// VoiceFingerprint summarizes the acoustic envelope of a spoken phrase.
type VoiceFingerprint struct {
	DurationSamples int     `json:"durationSamples"`
	AvgVolume       float64 `json:"avgVolume"`
	MaxVolume       float64 `json:"maxVolume"`
	Rhythm          float64 `json:"rhythm"`
	PeakCount       int     `json:"peakCount"`
}

func (VoiceFingerprint) Modality() Modality { return ModalityVoice }
func (VoiceFingerprint) sealed()            {}

// FrameVolume returns the root-mean-square level of an unsigned 8-bit
// time-domain waveform centred on 128. An empty window is silent.
func FrameVolume(waveform []byte) float64 {
	if len(waveform) == 0 {
		return 0
	}
	var sum float64
	for _, b := range waveform {
		n := (float64(b) - 128) / 128
		sum += n * n
	}
	return math.Sqrt(sum / float64(len(waveform)))
}

// ExtractVoice derives a VoiceFingerprint from recorded frames.
func ExtractVoice(frames []AudioFrame) (VoiceFingerprint, error) {
	if len(frames) < MinVoiceFrames {
		return VoiceFingerprint{}, insufficient("recording too short")
	}

	active := make([]float64, 0, len(frames))
	for _, f := range frames {
		if f.Volume > SilenceFloor {
			active = append(active, f.Volume)
		}
	}
	if len(active) < MinActiveFrames {
		return VoiceFingerprint{}, insufficient("no sound detected")
	}

	return VoiceFingerprint{
		DurationSamples: len(active),
		AvgVolume:       floats.Sum(active) / float64(len(active)),
		MaxVolume:       floats.Max(active),
		Rhythm:          meanAbsDelta(active),
		PeakCount:       countPeaks(active, PeakThreshold),
	}, nil
}

// VerifyVoice scores duration, volume, rhythm and peak count and requires
// MinVotes of the four to agree.
func VerifyVoice(fresh, stored VoiceFingerprint, tol Tolerances) bool {
	peakDiff := fresh.PeakCount - stored.PeakCount
	if peakDiff < 0 {
		peakDiff = -peakDiff
	}
	score := votes(
		withinRelative(float64(fresh.DurationSamples), float64(stored.DurationSamples), tol.VoiceDuration),
		withinRelative(fresh.AvgVolume, stored.AvgVolume, tol.VoiceVolume),
		withinRelative(fresh.Rhythm, stored.Rhythm, tol.VoiceRhythm),
		peakDiff <= tol.VoicePeaks,
	)
	return score >= tol.VoiceMinVotes
}

func meanAbsDelta(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(xs); i++ {
		sum += math.Abs(xs[i] - xs[i-1])
	}
	return sum / float64(len(xs)-1)
}

// countPeaks counts strict local maxima above threshold. The first and last
// samples have only one neighbour and never count.
func countPeaks(xs []float64, threshold float64) int {
	peaks := 0
	for i := 1; i < len(xs)-1; i++ {
		if xs[i] > threshold && xs[i] > xs[i-1] && xs[i] > xs[i+1] {
			peaks++
		}
	}
	return peaks
}
