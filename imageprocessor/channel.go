package imageprocessor

import (
	"fmt"
	"strings"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/logging"
)

// Hash channel names, as used in errors and logs
const (
	ChannelColor     = "color"
	ChannelStructure = "structure"
	ChannelEdge      = "edge"
	ChannelContent   = "content"
)

// channelResult is the outcome of one hash channel: either bits or an error
type channelResult struct {
	channel string
	bits    string
	err     error
}

// runChannel computes one channel, turning a panic inside fn into an error
func runChannel(channel, path string, fn func() (string, error)) (res channelResult) {
	res.channel = channel
	defer func() {
		if r := recover(); r != nil {
			res.bits = ""
			res.err = apperrors.NewHashError(channel, path, fmt.Errorf("panic: %v", r))
		}
	}()

	bits, err := fn()
	if err != nil {
		return channelResult{channel: channel, err: apperrors.NewHashError(channel, path, err)}
	}
	return channelResult{channel: channel, bits: bits}
}

// orZeroFill returns the bits when they have the expected length and a
// string of length zeros otherwise, logging the degradation.
func (r channelResult) orZeroFill(length int, path string) string {
	if r.err == nil && len(r.bits) == length {
		return r.bits
	}
	if r.err == nil {
		r.err = apperrors.NewHashError(r.channel, path,
			fmt.Errorf("expected %d bits, got %d", length, len(r.bits)))
	}
	logging.LogWarning("Degrading %s hash to zero bits: %v", r.channel, r.err)
	return strings.Repeat("0", length)
}

// zeroBits returns a hash of the given length with every bit cleared
func zeroBits(length int) string {
	return strings.Repeat("0", length)
}
