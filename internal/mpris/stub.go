//go:build !linux

package mpris

import "github.com/rs/zerolog"

// Adapter is a no-op on non-Linux platforms.
type Adapter struct{}

// New returns a no-op adapter on non-Linux platforms.
func New(_ string, _ Controller, _ zerolog.Logger) *Adapter {
	return &Adapter{}
}

func (a *Adapter) StartService(_, _ string, _ bool) error { return nil }

func (a *Adapter) UpdateMetadata(_, _ string, _ bool) error { return nil }

func (a *Adapter) UpdatePlaybackState(_ bool) error { return nil }

func (a *Adapter) StopService() error { return nil }

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}
