package fitbank

import "github.com/rs/zerolog/log"

// PRFC holds profile-constraint fits. Each profile quantity comes as a
// value/stat/right/left/geom group: X, DX, RX, LX, TX.
type PRFC struct {
	ProfileMask uint16       `json:"pflinfo_mask"`
	BinMask     uint16       `json:"bininfo_mask"`
	MatrixMask  uint16       `json:"mtxinfo_mask"`
	Profile     [MaxFit]bool `json:"pflinfo"`
	Bins        [MaxFit]bool `json:"bininfo"`
	Matrix      [MaxFit]bool `json:"mtxinfo"`

	FailMode [MaxFit]int32 `json:"failmode"`

	SzMx  [MaxFit]float64 `json:"szmx"`
	DSzMx [MaxFit]float64 `json:"dszmx"`
	RSzMx [MaxFit]float64 `json:"rszmx"`
	LSzMx [MaxFit]float64 `json:"lszmx"`
	TSzMx [MaxFit]float64 `json:"tszmx"`

	XM  [MaxFit]float64 `json:"xm"`
	DXM [MaxFit]float64 `json:"dxm"`
	RXM [MaxFit]float64 `json:"rxm"`
	LXM [MaxFit]float64 `json:"lxm"`
	TXM [MaxFit]float64 `json:"txm"`

	X0  [MaxFit]float64 `json:"x0"`
	DX0 [MaxFit]float64 `json:"dx0"`
	RX0 [MaxFit]float64 `json:"rx0"`
	LX0 [MaxFit]float64 `json:"lx0"`
	TX0 [MaxFit]float64 `json:"tx0"`

	Lambda  [MaxFit]float64 `json:"lambda"`
	DLambda [MaxFit]float64 `json:"dlambda"`
	RLambda [MaxFit]float64 `json:"rlambda"`
	LLambda [MaxFit]float64 `json:"llambda"`
	TLambda [MaxFit]float64 `json:"tlambda"`

	Eng  [MaxFit]float64 `json:"eng"`
	DEng [MaxFit]float64 `json:"deng"`
	REng [MaxFit]float64 `json:"reng"`
	LEng [MaxFit]float64 `json:"leng"`
	TEng [MaxFit]float64 `json:"teng"`

	TrajSource [MaxFit]int32   `json:"traj_source"`
	ErrStat    [MaxFit]int32   `json:"errstat"`
	NDF        [MaxFit]int32   `json:"ndf"`
	Chi2       [MaxFit]float64 `json:"chi2"`

	NBin  [MaxFit]int16     `json:"nbin"`
	Dep   [MaxFit][]float64 `json:"dep"`
	GM    [MaxFit][]float64 `json:"gm"`
	Scin  [MaxFit][]float64 `json:"scin"`
	Rayl  [MaxFit][]float64 `json:"rayl"`
	Aero  [MaxFit][]float64 `json:"aero"`
	Crnk  [MaxFit][]float64 `json:"crnk"`
	SigMC [MaxFit][]float64 `json:"sigmc"`
	Sig   [MaxFit][]float64 `json:"sig"`
	IG    [MaxFit][]int16   `json:"ig"`

	// NEl is the declared matrix size; MXEl holds at most MaxMatrixElements.
	NEl     [MaxFit]int16     `json:"nel"`
	MOr     [MaxFit]int16     `json:"mor"`
	MXEl    [MaxFit][]float64 `json:"mxel"`
	Clamped [MaxFit]bool      `json:"mxel_clamped"`

	End int `json:"-"`
}

// DecodePRFC decodes a PRFC payload. Matrix sections declaring more than
// MaxMatrixElements read only the first MaxMatrixElements values and leave the
// cursor there, as the legacy fixed-size buffer did.
func DecodePRFC(payload []byte, opts ...Option) (*PRFC, error) {
	r := newReader("prfc", payload, 8, opts)
	b := &PRFC{
		Dep: emptyFloats(), GM: emptyFloats(), Scin: emptyFloats(), Rayl: emptyFloats(),
		Aero: emptyFloats(), Crnk: emptyFloats(), SigMC: emptyFloats(), Sig: emptyFloats(),
		IG:   emptyInt16s(),
		MXEl: emptyFloats(),
	}

	r.enter("masks")
	b.ProfileMask = r.u16()
	b.BinMask = r.u16()
	b.MatrixMask = r.u16()
	b.Profile = DecodeMask(b.ProfileMask)
	b.Bins = DecodeMask(b.BinMask)
	b.Matrix = DecodeMask(b.MatrixMask)

	for i := 0; i < MaxFit && r.err == nil; i++ {
		if !b.Profile[i] {
			continue
		}
		r.enter("profile %d", i)
		b.FailMode[i] = r.i32()
		if b.FailMode[i] != Success {
			continue
		}
		b.SzMx[i], b.DSzMx[i], b.RSzMx[i], b.LSzMx[i], b.TSzMx[i] = r.f64(), r.f64(), r.f64(), r.f64(), r.f64()
		b.XM[i], b.DXM[i], b.RXM[i], b.LXM[i], b.TXM[i] = r.f64(), r.f64(), r.f64(), r.f64(), r.f64()
		b.X0[i], b.DX0[i], b.RX0[i], b.LX0[i], b.TX0[i] = r.f64(), r.f64(), r.f64(), r.f64(), r.f64()
		b.Lambda[i], b.DLambda[i], b.RLambda[i], b.LLambda[i], b.TLambda[i] = r.f64(), r.f64(), r.f64(), r.f64(), r.f64()
		b.Eng[i], b.DEng[i], b.REng[i], b.LEng[i], b.TEng[i] = r.f64(), r.f64(), r.f64(), r.f64(), r.f64()
		b.TrajSource[i] = r.i32()
		b.ErrStat[i] = r.i32()
		b.NDF[i] = r.i32()
		b.Chi2[i] = r.f64()
	}

	for i := 0; i < MaxFit && r.err == nil; i++ {
		if !b.Bins[i] {
			continue
		}
		r.enter("bins %d", i)
		b.NBin[i] = r.i16()
		n := int(b.NBin[i])
		b.Dep[i] = r.f64s(n)
		b.GM[i] = r.f64s(n)
		b.Scin[i] = r.f64s(n)
		b.Rayl[i] = r.f64s(n)
		b.Aero[i] = r.f64s(n)
		b.Crnk[i] = r.f64s(n)
		b.SigMC[i] = r.f64s(n)
		b.Sig[i] = r.f64s(n)
		b.IG[i] = r.i16s(n)
	}

	for i := 0; i < MaxFit && r.err == nil; i++ {
		if !b.Matrix[i] {
			continue
		}
		r.enter("matrix %d", i)
		b.NEl[i] = r.i16()
		b.MOr[i] = r.i16()
		n := int(b.NEl[i])
		if n > MaxMatrixElements {
			log.Debug().Int("fit", i).Int("declared", n).Msg("prfc: matrix clamped")
			b.Clamped[i] = true
			n = MaxMatrixElements
		}
		b.MXEl[i] = r.f64s(n)
	}

	if err := r.finish(); err != nil {
		return nil, err
	}
	b.End = r.c.Offset()
	return b, nil
}
