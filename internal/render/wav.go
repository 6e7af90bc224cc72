package render

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// EncodeWAV writes pcm as 16-bit mono PCM
func EncodeWAV(w io.WriteSeeker, pcm *PCM) error {
	if pcm.Empty() {
		return fmt.Errorf("nothing to encode")
	}
	enc := wav.NewEncoder(w, pcm.SampleRate, wavBitDepth, 1, 1)
	data := make([]int, len(pcm.Samples))
	for i, v := range pcm.Samples {
		v = max(-1, min(1, v))
		data[i] = int(v * 32767)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: pcm.SampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// WriteWAV saves pcm to path
func WriteWAV(path string, pcm *PCM) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, pcm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadWAV loads a mono or stereo WAV file, downmixing to mono
func ReadWAV(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	ch := buf.Format.NumChannels
	if ch < 1 {
		ch = 1
	}
	depth := int(dec.BitDepth)
	if depth <= 0 {
		depth = wavBitDepth
	}
	scale := float32(int(1) << (depth - 1))
	out := make([]float32, len(buf.Data)/ch)
	for i := range out {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Data[i*ch+c]) / scale
		}
		out[i] = sum / float32(ch)
	}
	return &PCM{Samples: out, SampleRate: buf.Format.SampleRate}, nil
}
