package imageprocessor

import (
	"errors"
	"strings"
	"testing"

	apperrors "imagefingerprint/errors"
)

func TestRunChannel_ErrorDegradesToZeroBits(t *testing.T) {
	opts := DefaultHashOptions()

	tests := []struct {
		name    string
		channel string
		length  int
		fn      func() (string, error)
	}{
		{"color error", ChannelColor, opts.ColorBits(), func() (string, error) { return "", errors.New("resize failed") }},
		{"structure panic", ChannelStructure, opts.StructureBits(), func() (string, error) { panic("bad mat") }},
		{"edge short result", ChannelEdge, opts.EdgeBits(), func() (string, error) { return "0101", nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runChannel(tt.channel, "/img/a.png", tt.fn)
			bits := res.orZeroFill(tt.length, "/img/a.png")
			if bits != strings.Repeat("0", tt.length) {
				t.Errorf("Expected %d zero bits, got %q", tt.length, bits)
			}
		})
	}
}

func TestRunChannel_ErrorIsHashError(t *testing.T) {
	res := runChannel(ChannelColor, "/img/a.png", func() (string, error) {
		return "", errors.New("boom")
	})
	if !apperrors.IsCategory(res.err, apperrors.CategoryHash) {
		t.Errorf("Expected hash category error, got %v", res.err)
	}
	if !apperrors.IsRecoverable(res.err) {
		t.Error("Expected hash errors to be recoverable")
	}
}

func TestRunChannel_Success(t *testing.T) {
	res := runChannel(ChannelColor, "/img/a.png", func() (string, error) {
		return "1010", nil
	})
	if got := res.orZeroFill(4, "/img/a.png"); got != "1010" {
		t.Errorf("Expected bits to pass through, got %q", got)
	}
}

func TestHashOptions(t *testing.T) {
	opts := DefaultHashOptions()
	if opts.ColorBits() != 64 || opts.StructureBits() != 240 || opts.EdgeBits() != 900 {
		t.Errorf("Unexpected default widths: %d/%d/%d", opts.ColorBits(), opts.StructureBits(), opts.EdgeBits())
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}

	bad := opts
	bad.EdgeSize = 2
	if err := bad.Validate(); !errors.Is(err, apperrors.ErrInvalidOptions) {
		t.Errorf("Expected ErrInvalidOptions, got %v", err)
	}

	bad = opts
	bad.ThumbnailQuality = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for zero quality")
	}
}
