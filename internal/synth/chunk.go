// SPDX-License-Identifier: MIT
package synth

import "noisestream/internal/pcm"

// Fill writes the next len(out) unscaled samples in [-1, 1] into out.
func (g *Generator) Fill(out []float64) {
	switch g.kind {
	case kindWhite:
		g.fillWhite(out)
	case kindPink:
		g.fillPink(out)
	case kindBrown:
		g.fillBrown(out)
	case kindCustom:
		g.fillCustom(out)
	case kindTonal:
		g.fillTonal(out)
	}
}

// AppendChunk appends n encoded frames to dst. Volume is applied before
// encoding. After the first call with a given n it allocates only when dst
// lacks capacity.
func (g *Generator) AppendChunk(dst []byte, n int) []byte {
	if n <= 0 {
		return dst
	}
	buf := g.samples(n)
	for _, x := range buf {
		dst = pcm.AppendFrame(dst, pcm.EncodeSample(x*g.volume))
	}
	return dst
}

// NextChunk returns n freshly encoded frames.
func (g *Generator) NextChunk(n int) []byte {
	return g.AppendChunk(make([]byte, 0, max(n, 0)*pcm.BytesPerSample), n)
}

// AppendSamples appends n encoded samples to dst without serializing them.
func (g *Generator) AppendSamples(dst []int16, n int) []int16 {
	if n <= 0 {
		return dst
	}
	for _, x := range g.samples(n) {
		dst = append(dst, pcm.EncodeSample(x*g.volume))
	}
	return dst
}

// NextSamples returns the next n encoded samples.
func (g *Generator) NextSamples(n int) []int16 {
	return g.AppendSamples(make([]int16, 0, max(n, 0)), n)
}

func (g *Generator) samples(n int) []float64 {
	if cap(g.scratch) < n {
		g.scratch = make([]float64, n)
	}
	buf := g.scratch[:n]
	g.Fill(buf)
	return buf
}
