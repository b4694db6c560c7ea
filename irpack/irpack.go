// Package irpack stores ir.Module values as msgpack so transformed modules
// can be handed between tools.
//
// A file is a header followed by the module:
//
//	{Magic: "NAGAIR", Version: "1.0.0"} {Types, Constants, ...}
//
// Interface-typed IR nodes are written as a kind name plus the msgpack of
// the concrete value. Expression types are not stored; they are recomputed
// on demand by the passes that need them.
package irpack

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-version"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/immediates/ir"
)

// Magic starts every irpack stream.
const Magic = "NAGAIR"

// FormatVersion is the version written by Encode.
const FormatVersion = "1.0.0"

// supportedVersions are the format versions Decode reads.
const supportedVersions = ">= 1.0.0, < 2.0.0"

var (
	// ErrBadMagic is returned for streams that do not start with Magic.
	ErrBadMagic = errors.New("irpack: not an irpack stream")
	// ErrUnsupportedVersion is returned for streams of a format version
	// this package cannot read.
	ErrUnsupportedVersion = errors.New("irpack: unsupported format version")
)

// Header precedes the module in a stream.
type Header struct {
	Magic   string `msgpack:"magic"`
	Version string `msgpack:"version"`
}

// Encode writes m to w.
func Encode(w io.Writer, m *ir.Module) error {
	packed, err := packModule(m)
	if err != nil {
		return fmt.Errorf("irpack: %w", err)
	}
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(Header{Magic: Magic, Version: FormatVersion}); err != nil {
		return fmt.Errorf("irpack: write header: %w", err)
	}
	if err := enc.Encode(packed); err != nil {
		return fmt.Errorf("irpack: write module: %w", err)
	}
	return nil
}

// Decode reads a module written by Encode.
func Decode(r io.Reader) (*ir.Module, error) {
	dec := msgpack.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, h.Magic)
	}
	if err := checkVersion(h.Version); err != nil {
		return nil, err
	}

	var packed packedModule
	if err := dec.Decode(&packed); err != nil {
		return nil, fmt.Errorf("irpack: read module: %w", err)
	}
	m, err := unpackModule(&packed)
	if err != nil {
		return nil, fmt.Errorf("irpack: %w", err)
	}
	return m, nil
}

// Marshal returns the encoding of m.
func Marshal(m *ir.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a module from data.
func Unmarshal(data []byte) (*ir.Module, error) {
	return Decode(bytes.NewReader(data))
}

func checkVersion(v string) error {
	got, err := version.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrUnsupportedVersion, v, err)
	}
	constraints, err := version.NewConstraint(supportedVersions)
	if err != nil {
		return fmt.Errorf("irpack: %w", err)
	}
	if !constraints.Check(got) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, got, supportedVersions)
	}
	return nil
}
