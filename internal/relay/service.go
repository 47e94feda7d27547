package relay

import (
	"bytes"
	"context"
	"time"
)

// DefaultTick is the stream poll interval, capping each viewer at 10 frames/s.
const DefaultTick = 100 * time.Millisecond

// Service holds the relay behaviour and delegates storage to Repository.
type Service struct {
	repo Repository
	tick time.Duration
}

// NewService returns a Service that polls repo every tick while streaming.
// If tick <= 0, DefaultTick is used.
func NewService(repo Repository, tick time.Duration) *Service {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Service{repo: repo, tick: tick}
}

// ReceiveFrame stores data as the latest frame for id.
func (s *Service) ReceiveFrame(id RobotID, data []byte) {
	s.repo.PutFrame(id, data)
}

// LatestFrame returns the most recent frame for id, if any.
func (s *Service) LatestFrame(id RobotID) (Frame, bool) {
	return s.repo.GetFrame(id)
}

// ShouldStream reports whether a viewer has asked robot id to stream.
func (s *Service) ShouldStream(id RobotID) bool {
	return s.repo.GetStreaming(id)
}

// RequestStream raises the streaming flag and returns its new value.
func (s *Service) RequestStream(id RobotID) bool {
	s.repo.SetStreaming(id, true)
	return true
}

// StopStream clears the streaming flag and returns its new value.
func (s *Service) StopStream(id RobotID) bool {
	s.repo.SetStreaming(id, false)
	return false
}

// RobotCount returns the number of robots seen so far.
func (s *Service) RobotCount() int {
	return s.repo.RobotCount()
}

// Stream polls the latest frame for id immediately and then again one tick
// after each poll, calling emit whenever the stored bytes differ from the
// last emitted frame. Empty uploads are never emitted. Consecutive emits are
// at least one tick apart.
//
// Stream returns nil when ctx is done; a viewer going away is the normal way
// for a stream to end. An error from emit is returned as is.
func (s *Service) Stream(ctx context.Context, id RobotID, emit func(frame []byte) error) error {
	timer := time.NewTimer(s.tick)
	defer timer.Stop()

	var last []byte
	for {
		if frame, ok := s.repo.GetFrame(id); ok && len(frame.Data) > 0 && !bytes.Equal(frame.Data, last) {
			if err := emit(frame.Data); err != nil {
				return err
			}
			last = frame.Data
		}

		// Rearmed after emit returns, not before the poll.
		timer.Reset(s.tick)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}
