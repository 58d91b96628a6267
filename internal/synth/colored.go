// SPDX-License-Identifier: MIT
package synth

const (
	brownStep    = 0.02
	brownDamping = 0.98
	pinkGain     = 0.11
)

func (g *Generator) fillWhite(out []float64) {
	for i := range out {
		out[i] = g.uniform()
	}
}

// fillBrown integrates white noise. The clamped accumulator is emitted
// before damping is applied.
func (g *Generator) fillBrown(out []float64) {
	acc := g.brown
	for i := range out {
		acc = clamp(acc+g.uniform()*brownStep, -1, 1)
		out[i] = acc
		acc *= brownDamping
	}
	g.brown = acc
}

// fillPink runs Paul Kellet's refined pink noise filter.
func (g *Generator) fillPink(out []float64) {
	b := &g.pink
	for i := range out {
		white := g.uniform()
		b[0] = 0.99886*b[0] + white*0.0555179
		b[1] = 0.99332*b[1] + white*0.0750759
		b[2] = 0.96900*b[2] + white*0.1538520
		b[3] = 0.86650*b[3] + white*0.3104856
		b[4] = 0.55000*b[4] + white*0.5329522
		b[5] = -0.7616*b[5] - white*0.0168980
		pink := b[0] + b[1] + b[2] + b[3] + b[4] + b[5] + b[6] + white*0.5362
		b[6] = white * 0.115926
		out[i] = clamp(pink*pinkGain, -1, 1)
	}
}
