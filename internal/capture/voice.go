package capture

import (
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// maxVoiceFrames bounds a recording well above what the auto-stop allows.
const maxVoiceFrames = 4096

// VoiceRecorder collects per-frame volumes between Start and Stop.
type VoiceRecorder struct {
	frames    []pattern.AudioFrame
	recording bool
}

// NewVoiceRecorder returns an idle recorder.
func NewVoiceRecorder() *VoiceRecorder {
	return &VoiceRecorder{}
}

func (*VoiceRecorder) Modality() pattern.Modality { return pattern.ModalityVoice }

// Start discards any previous frames and begins recording.
func (v *VoiceRecorder) Start() {
	v.frames = v.frames[:0]
	v.recording = true
}

// Stop ends the recording. Later frames are ignored.
func (v *VoiceRecorder) Stop() {
	v.recording = false
}

// Recording reports whether frames are being accepted.
func (v *VoiceRecorder) Recording() bool {
	return v.recording
}

// Add appends a frame while recording. It reports whether the frame was kept.
func (v *VoiceRecorder) Add(f pattern.AudioFrame) bool {
	if !v.recording || len(v.frames) >= maxVoiceFrames {
		return false
	}
	v.frames = append(v.frames, f)
	return true
}

// Len returns the number of recorded frames.
func (v *VoiceRecorder) Len() int {
	return len(v.frames)
}

func (v *VoiceRecorder) Finish() (pattern.Fingerprint, error) {
	fp, err := pattern.ExtractVoice(v.frames)
	if err != nil {
		return nil, err
	}
	return fp, nil
}
