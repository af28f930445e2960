package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "spectro/internal/log"
)

// recorder holds the WAV encoding state for raw-capture recording. The
// armed flag is the only field the callback reads before touching the
// rest, so Start/Stop sequence their writes around it.
type recorder struct {
	armed      int32 // atomic
	bitDepth   int
	fullScale  float64
	outputFile *os.File
	encoder    *wav.Encoder
	sampleBuf  *goaudio.IntBuffer
}

// StartRecording arms raw-capture recording into a mono WAV file at the
// configured bit depth. Returns an error if recording is already armed.
func (c *Capture) StartRecording(filename string, bitDepth int) error {
	if atomic.LoadInt32(&c.rec.armed) == 1 {
		return fmt.Errorf("audio: already recording")
	}
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("audio: unsupported bit depth %d", bitDepth)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("audio: create recording: %w", err)
	}

	c.rec.outputFile = file
	c.rec.bitDepth = bitDepth
	c.rec.fullScale = float64(int(1)<<(bitDepth-1) - 1)
	c.rec.encoder = wav.NewEncoder(file, int(c.sampleRate), bitDepth, 1, 1)
	c.rec.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(c.sampleRate),
		},
		Data: make([]int, c.framesPerBuffer),
	}

	atomic.StoreInt32(&c.rec.armed, 1)
	applog.Infof("audio: recording to %s (%d-bit)", filename, bitDepth)
	return nil
}

// StopRecording disarms recording and finalizes the WAV file. Calling
// it while not recording is a no-op.
func (c *Capture) StopRecording() error {
	if atomic.LoadInt32(&c.rec.armed) == 0 {
		return nil
	}
	atomic.StoreInt32(&c.rec.armed, 0)

	if c.rec.encoder != nil {
		if err := c.rec.encoder.Close(); err != nil {
			return fmt.Errorf("audio: finalize recording: %w", err)
		}
		c.rec.encoder = nil
	}
	if c.rec.outputFile != nil {
		if err := c.rec.outputFile.Close(); err != nil {
			return fmt.Errorf("audio: close recording: %w", err)
		}
		c.rec.outputFile = nil
	}
	return nil
}

// write converts one callback chunk to integer samples and appends it
// to the WAV file. Runs on the callback thread after the push; the
// write is best effort and failures are only logged.
func (r *recorder) write(samples []float32) {
	if r.encoder == nil {
		return
	}

	data := r.sampleBuf.Data[:cap(r.sampleBuf.Data)]
	if len(samples) > len(data) {
		samples = samples[:len(data)]
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(float64(s) * r.fullScale)
	}
	r.sampleBuf.Data = data[:len(samples)]

	if err := r.encoder.Write(r.sampleBuf); err != nil {
		applog.Errorf("audio: recording write failed: %v", err)
	}
}
