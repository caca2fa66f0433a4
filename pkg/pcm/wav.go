package pcm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth  = 16
	wavFormat = 1 // uncompressed PCM
)

var ErrEmpty = errors.New("pcm: empty buffer")

// Encode writes b as an uncompressed mono 16-bit wave stream.
func Encode(w io.WriteSeeker, b Buffer) error {
	if len(b.Samples) == 0 {
		return ErrEmpty
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("pcm: invalid sample rate %d", b.SampleRate)
	}

	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, b.SampleRate, bitDepth, 1, wavFormat)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  b.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	return enc.Close()
}

// WriteWAV replaces the file at path with the wave encoding of b.
func WriteWAV(path string, b Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Encode(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a mono 16-bit wave stream.
func Decode(r io.ReadSeeker) (Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Buffer{}, errors.New("pcm: invalid wav")
	}
	if dec.NumChans != 1 {
		return Buffer{}, fmt.Errorf("pcm: expected mono, got %d channels", dec.NumChans)
	}
	if dec.BitDepth != bitDepth {
		return Buffer{}, fmt.Errorf("pcm: expected %d-bit samples, got %d", bitDepth, dec.BitDepth)
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("read samples: %w", err)
	}

	out := Buffer{
		Samples:    make([]int16, len(pb.Data)),
		SampleRate: int(dec.SampleRate),
	}
	for i, v := range pb.Data {
		out.Samples[i] = int16(v)
	}
	return out, nil
}

// ReadWAV loads the wave file at path.
func ReadWAV(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, err
	}
	defer f.Close()

	return Decode(f)
}
