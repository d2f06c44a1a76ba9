// Package state saves and restores parameter values as an opaque, versioned
// binary blob.
//
// Layout, little endian:
//
//	magic   [6]byte  "WGAIN1"
//	version uint32
//	count   uint32
//	count × { idLen uint16, id [idLen]byte, value float64 }
//	crc     uint32   CRC-32 (IEEE) of every preceding byte
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/justyntemme/webgain/pkg/framework/debug"
	"github.com/justyntemme/webgain/pkg/framework/param"
)

// Magic identifies a state blob.
const Magic = "WGAIN1"

// Version is the schema version written by this package.
const Version uint32 = 1

const (
	headerSize   = len(Magic) + 4 + 4
	trailerSize  = 4
	minEntrySize = 2 + 8
	maxBlobSize  = 1 << 20
)

var (
	// ErrInvalidFormat is returned when the blob is not a state blob.
	ErrInvalidFormat = errors.New("invalid state format")
	// ErrTruncated is returned when the blob ends early.
	ErrTruncated = errors.New("truncated state")
	// ErrUnsupportedVersion is returned for blobs written by a newer schema.
	ErrUnsupportedVersion = errors.New("unsupported state version")
	// ErrChecksum is returned when the trailing CRC does not match.
	ErrChecksum = errors.New("state checksum mismatch")
)

// Entry is one decoded parameter value.
type Entry struct {
	ID    string
	Value float64
}

// Codec serializes the values of a param.Store.
type Codec struct {
	store  *param.Store
	logger *debug.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger used for skipped ids.
func WithLogger(logger *debug.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}

// NewCodec creates a codec bound to store.
func NewCodec(store *param.Store, opts ...Option) *Codec {
	c := &Codec{
		store:  store,
		logger: debug.Named("state"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serialize captures every parameter from one snapshot of the store.
func (c *Codec) Serialize() ([]byte, error) {
	table := c.store.Table()
	snap := c.store.Snapshot()

	entries := make([]Entry, table.Len())
	for i := range entries {
		entries[i] = Entry{ID: table.At(i).ID, Value: snap.Value(i)}
	}
	return Encode(Version, entries)
}

// Deserialize decodes blob completely and then applies it to the store in a
// single commit. Ids the table does not know are skipped with a warning;
// parameters missing from the blob keep their current value. On error the
// store is left untouched.
func (c *Codec) Deserialize(blob []byte) error {
	_, entries, err := Decode(blob)
	if err != nil {
		return err
	}

	values := make(map[string]float64, len(entries))
	for _, e := range entries {
		if _, ok := c.store.Index(e.ID); !ok {
			c.logger.Warn("skipping unknown parameter %q in state", e.ID)
			continue
		}
		values[e.ID] = e.Value
	}

	if err := c.store.Restore(values, param.OriginState); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	c.logger.Debug("restored %d of %d parameters", len(values), len(entries))
	return nil
}

// Save writes the serialized state to w.
func (c *Codec) Save(w io.Writer) error {
	blob, err := c.Serialize()
	if err != nil {
		return err
	}
	_, err = w.Write(blob)
	return err
}

// Load reads a blob from r until EOF and deserializes it.
func (c *Codec) Load(r io.Reader) error {
	blob, err := io.ReadAll(io.LimitReader(r, maxBlobSize+1))
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if len(blob) > maxBlobSize {
		return fmt.Errorf("%w: state larger than %d bytes", ErrInvalidFormat, maxBlobSize)
	}
	return c.Deserialize(blob)
}

// Encode builds a blob for the given schema version.
func Encode(version uint32, entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(entries)*(minEntrySize+8) + trailerSize)

	buf.WriteString(Magic)
	binary.Write(&buf, binary.LittleEndian, version)
	binary.Write(&buf, binary.LittleEndian, uint32(len(entries)))

	for _, e := range entries {
		if len(e.ID) == 0 || len(e.ID) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: id length %d", ErrInvalidFormat, len(e.ID))
		}
		binary.Write(&buf, binary.LittleEndian, uint16(len(e.ID)))
		buf.WriteString(e.ID)
		binary.Write(&buf, binary.LittleEndian, e.Value)
	}

	binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// Decode validates blob and returns its version and entries. It does not
// touch any store.
func Decode(blob []byte) (uint32, []Entry, error) {
	if len(blob) < len(Magic) {
		if bytes.HasPrefix([]byte(Magic), blob) {
			return 0, nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(blob))
		}
		return 0, nil, ErrInvalidFormat
	}
	if string(blob[:len(Magic)]) != Magic {
		return 0, nil, fmt.Errorf("%w: bad magic %q", ErrInvalidFormat, blob[:len(Magic)])
	}
	if len(blob) < headerSize {
		return 0, nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(blob))
	}

	version := binary.LittleEndian.Uint32(blob[len(Magic):])
	if version > Version {
		return version, nil, fmt.Errorf("%w: version %d is newer than %d", ErrUnsupportedVersion, version, Version)
	}
	if version == 0 {
		return version, nil, fmt.Errorf("%w: version 0", ErrInvalidFormat)
	}
	count := binary.LittleEndian.Uint32(blob[len(Magic)+4:])

	r := bytes.NewReader(blob[headerSize:])
	capacity := int(count)
	if limit := r.Len() / minEntrySize; capacity > limit {
		capacity = limit
	}
	entries := make([]Entry, 0, capacity)

	for i := uint32(0); i < count; i++ {
		var idLen uint16
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return version, nil, fmt.Errorf("%w: entry %d", ErrTruncated, i)
		}
		if idLen == 0 {
			return version, nil, fmt.Errorf("%w: entry %d has an empty id", ErrInvalidFormat, i)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return version, nil, fmt.Errorf("%w: entry %d id", ErrTruncated, i)
		}
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return version, nil, fmt.Errorf("%w: entry %d value", ErrTruncated, i)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return version, nil, fmt.Errorf("%w: %q is not finite", ErrInvalidFormat, id)
		}
		entries = append(entries, Entry{ID: string(id), Value: value})
	}

	switch {
	case r.Len() < trailerSize:
		return version, nil, fmt.Errorf("%w: missing checksum", ErrTruncated)
	case r.Len() > trailerSize:
		return version, nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidFormat, r.Len()-trailerSize)
	}

	body := blob[:len(blob)-trailerSize]
	want := binary.LittleEndian.Uint32(blob[len(body):])
	if got := crc32.ChecksumIEEE(body); got != want {
		return version, nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, want)
	}

	return version, entries, nil
}
