package fitbank

// HCTIM holds time-geometry fits per fit slot. The m/r/l prefixes are the
// best fit and its right and left bounds.
type HCTIM struct {
	Mask     uint16        `json:"timinfo_mask"`
	Active   [MaxFit]bool  `json:"timinfo"`
	JDay     [MaxFit]int32 `json:"jday"`
	JSec     [MaxFit]int32 `json:"jsec"`
	MSec     [MaxFit]int32 `json:"msec"`
	FailMode [MaxFit]int32 `json:"failmode"`

	MChi2 [MaxFit]float64 `json:"mchi2"`
	RChi2 [MaxFit]float64 `json:"rchi2"`
	LChi2 [MaxFit]float64 `json:"lchi2"`
	MRp   [MaxFit]float64 `json:"mrp"`
	RRp   [MaxFit]float64 `json:"rrp"`
	LRp   [MaxFit]float64 `json:"lrp"`
	MPsi  [MaxFit]float64 `json:"mpsi"`
	RPsi  [MaxFit]float64 `json:"rpsi"`
	LPsi  [MaxFit]float64 `json:"lpsi"`
	MThe  [MaxFit]float64 `json:"mthe"`
	RThe  [MaxFit]float64 `json:"rthe"`
	LThe  [MaxFit]float64 `json:"lthe"`
	MPhi  [MaxFit]float64 `json:"mphi"`
	RPhi  [MaxFit]float64 `json:"rphi"`
	LPhi  [MaxFit]float64 `json:"lphi"`

	MTkv  [MaxFit][3]float64 `json:"mtkv"`
	RTkv  [MaxFit][3]float64 `json:"rtkv"`
	LTkv  [MaxFit][3]float64 `json:"ltkv"`
	MRpv  [MaxFit][3]float64 `json:"mrpv"`
	RRpv  [MaxFit][3]float64 `json:"rrpv"`
	LRpv  [MaxFit][3]float64 `json:"lrpv"`
	MRpuv [MaxFit][3]float64 `json:"mrpuv"`
	RRpuv [MaxFit][3]float64 `json:"rrpuv"`
	LRpuv [MaxFit][3]float64 `json:"lrpuv"`
	MShwn [MaxFit][3]float64 `json:"mshwn"`
	RShwn [MaxFit][3]float64 `json:"rshwn"`
	LShwn [MaxFit][3]float64 `json:"lshwn"`
	MCore [MaxFit][3]float64 `json:"mcore"`
	RCore [MaxFit][3]float64 `json:"rcore"`
	LCore [MaxFit][3]float64 `json:"lcore"`

	NMir     [MaxFit]int16   `json:"nmir"`
	Mir      [MaxFit][]int16 `json:"mir"`
	MirNTube [MaxFit][]int16 `json:"mirntube"`

	NTube   [MaxFit]int16     `json:"ntube"`
	Tube    [MaxFit][]int16   `json:"tube"`
	TubeMir [MaxFit][]int16   `json:"tubemir"`
	IG      [MaxFit][]int16   `json:"ig"`
	Time    [MaxFit][]float64 `json:"time"`
	TimeFit [MaxFit][]float64 `json:"timefit"`
	ThetB   [MaxFit][]float64 `json:"thetb"`
	Sgmt    [MaxFit][]float64 `json:"sgmt"`
	ASX     [MaxFit][]float64 `json:"asx"`
	ASY     [MaxFit][]float64 `json:"asy"`
	ASZ     [MaxFit][]float64 `json:"asz"`

	End int `json:"-"`
}

func DecodeHCTIM(payload []byte, opts ...Option) (*HCTIM, error) {
	r := newReader("hctim", payload, 8, opts)
	b := &HCTIM{
		Mir: emptyInt16s(), MirNTube: emptyInt16s(),
		Tube: emptyInt16s(), TubeMir: emptyInt16s(), IG: emptyInt16s(),
		Time: emptyFloats(), TimeFit: emptyFloats(), ThetB: emptyFloats(), Sgmt: emptyFloats(),
		ASX: emptyFloats(), ASY: emptyFloats(), ASZ: emptyFloats(),
	}

	r.enter("timinfo")
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

		b.MChi2[i], b.RChi2[i], b.LChi2[i] = r.f64(), r.f64(), r.f64()
		b.MRp[i], b.RRp[i], b.LRp[i] = r.f64(), r.f64(), r.f64()
		b.MPsi[i], b.RPsi[i], b.LPsi[i] = r.f64(), r.f64(), r.f64()
		b.MThe[i], b.RThe[i], b.LThe[i] = r.f64(), r.f64(), r.f64()
		b.MPhi[i], b.RPhi[i], b.LPhi[i] = r.f64(), r.f64(), r.f64()

		b.MTkv[i], b.RTkv[i], b.LTkv[i] = r.vec3(), r.vec3(), r.vec3()
		b.MRpv[i], b.RRpv[i], b.LRpv[i] = r.vec3(), r.vec3(), r.vec3()
		b.MRpuv[i], b.RRpuv[i], b.LRpuv[i] = r.vec3(), r.vec3(), r.vec3()
		b.MShwn[i], b.RShwn[i], b.LShwn[i] = r.vec3(), r.vec3(), r.vec3()
		b.MCore[i], b.RCore[i], b.LCore[i] = r.vec3(), r.vec3(), r.vec3()

		r.enter("fit %d mirrors", i)
		b.NMir[i] = r.i16()
		nmir := int(b.NMir[i])
		b.Mir[i] = r.i16s(nmir)
		b.MirNTube[i] = r.i16s(nmir)

		r.enter("fit %d tubes", i)
		b.NTube[i] = r.i16()
		ntube := int(b.NTube[i])
		b.Tube[i] = r.i16s(ntube)
		b.TubeMir[i] = r.i16s(ntube)
		b.IG[i] = r.i16s(ntube)
		b.Time[i] = r.f64s(ntube)
		b.TimeFit[i] = r.f64s(ntube)
		b.ThetB[i] = r.f64s(ntube)
		b.Sgmt[i] = r.f64s(ntube)
		b.ASX[i] = r.f64s(ntube)
		b.ASY[i] = r.f64s(ntube)
		b.ASZ[i] = r.f64s(ntube)
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	b.End = r.c.Offset()
	return b, nil
}
