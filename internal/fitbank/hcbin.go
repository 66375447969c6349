package fitbank

// HCBIN holds light-flux bins per fit slot.
type HCBIN struct {
	Mask     uint16            `json:"bininfo_mask"`
	Active   [MaxFit]bool      `json:"bininfo"`
	JDay     [MaxFit]int32     `json:"jday"`
	JSec     [MaxFit]int32     `json:"jsec"`
	MSec     [MaxFit]int32     `json:"msec"`
	FailMode [MaxFit]int32     `json:"failmode"`
	NBin     [MaxFit]int16     `json:"nbin"`
	BVX      [MaxFit][]float64 `json:"bvx"`
	BVY      [MaxFit][]float64 `json:"bvy"`
	BVZ      [MaxFit][]float64 `json:"bvz"`
	BSZ      [MaxFit][]float64 `json:"bsz"`
	Sig      [MaxFit][]float64 `json:"sig"`
	SigErr   [MaxFit][]float64 `json:"sigerr"`
	CFC      [MaxFit][]float64 `json:"cfc"`
	IG       [MaxFit][]int32   `json:"ig"`

	End int `json:"-"`
}

// DecodeHCBIN decodes an HCBIN payload. Decoding starts after the 8-byte bank
// header unless WithOffset says otherwise.
func DecodeHCBIN(payload []byte, opts ...Option) (*HCBIN, error) {
	r := newReader("hcbin", payload, 8, opts)
	b := &HCBIN{
		BVX: emptyFloats(), BVY: emptyFloats(), BVZ: emptyFloats(), BSZ: emptyFloats(),
		Sig: emptyFloats(), SigErr: emptyFloats(), CFC: emptyFloats(),
		IG: emptyInt32s(),
	}

	r.enter("bininfo")
	b.Mask = r.u16()
	b.Active = DecodeMask(b.Mask)

	for i := 0; i < MaxFit && r.err == nil; i++ {
		if !b.Active[i] {
			continue
		}
		r.enter("fit %d", i)
		b.JDay[i] = r.i32()
		b.JSec[i] = r.i32()
		b.MSec[i] = r.i32()
		b.FailMode[i] = r.i32()
		if b.FailMode[i] != Success {
			continue
		}
		nb := r.i16()
		b.NBin[i] = nb
		n := int(nb)
		b.BVX[i] = r.f64s(n)
		b.BVY[i] = r.f64s(n)
		b.BVZ[i] = r.f64s(n)
		b.BSZ[i] = r.f64s(n)
		b.Sig[i] = r.f64s(n)
		b.SigErr[i] = r.f64s(n)
		b.CFC[i] = r.f64s(n)
		b.IG[i] = r.i32s(n)
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	b.End = r.c.Offset()
	return b, nil
}
