package sampler

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"breathe/encoder"
)

// recording streams captured PCM into a FLAC file. Feed runs on the audio
// backend's callback goroutine; encoding happens on a separate goroutine so
// the callback never waits on disk.
type recording struct {
	path    string
	file    *os.File
	encoder encoder.Encoder

	mu        sync.Mutex
	closed    bool
	sampleBuf []int16
	blockChan chan []int16
	done      chan struct{}
	encodeErr error
}

func newRecording(dir string) (*recording, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	name := fmt.Sprintf("breath-%s.flac", time.Now().Format("20060102-150405.000"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	enc, err := encoder.NewFlac(f)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	r := &recording{
		path:      path,
		file:      f,
		encoder:   enc,
		blockChan: make(chan []int16, 64),
		done:      make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		for block := range r.blockChan {
			if err := r.encoder.EncodeBlock(block); err != nil && r.encodeErr == nil {
				r.encodeErr = err
			}
		}
	}()
	return r, nil
}

func (r *recording) Feed(pcm []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		r.sampleBuf = append(r.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	for len(r.sampleBuf) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, r.sampleBuf[:encoder.BlockSize])
		r.sampleBuf = r.sampleBuf[encoder.BlockSize:]
		r.blockChan <- block
	}
}

// Finish flushes the tail, closes the file and returns its path. A
// recording that never received audio is removed and reports "".
func (r *recording) Finish() (string, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", nil
	}
	r.closed = true
	if len(r.sampleBuf) > 0 {
		partial := make([]int16, len(r.sampleBuf))
		copy(partial, r.sampleBuf)
		r.sampleBuf = nil
		r.blockChan <- partial
	}
	close(r.blockChan)
	r.mu.Unlock()

	<-r.done
	closeErr := r.encoder.Close()
	// The flac encoder closes its writer when it can; a second close is harmless.
	if err := r.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) && closeErr == nil {
		closeErr = err
	}

	if r.encoder.TotalFrames() == 0 {
		os.Remove(r.path)
		return "", nil
	}
	if r.encodeErr != nil {
		return r.path, fmt.Errorf("encode recording: %w", r.encodeErr)
	}
	if closeErr != nil {
		return r.path, fmt.Errorf("close recording: %w", closeErr)
	}
	return r.path, nil
}

// Abort discards the recording.
func (r *recording) Abort() {
	r.Finish()
	os.Remove(r.path)
}
