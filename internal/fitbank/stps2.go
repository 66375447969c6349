package fitbank

// STPS2 holds stereo filter values per eye. Tables have MaxEye entries;
// eyes whose IfEye flag is not 1 keep zero values.
type STPS2 struct {
	MaxEye        int32     `json:"maxeye"`
	IfEye         []int32   `json:"if_eye"`
	PLog          []float32 `json:"plog"`
	RVec          []float32 `json:"rvec"`
	RWalk         []float32 `json:"rwalk"`
	Ang           []float32 `json:"ang"`
	AveTime       []float32 `json:"aveTime"`
	SigmaTime     []float32 `json:"sigmaTime"`
	AvePhot       []float32 `json:"avePhot"`
	SigmaPhot     []float32 `json:"sigmaPhot"`
	Lifetime      []float32 `json:"lifetime"`
	TotalLifetime []float32 `json:"totalLifetime"`
	InTimeTubes   []int32   `json:"inTimeTubes"`
	Upward        []int8    `json:"upward"`

	End int `json:"-"`
}

// EyeActive reports whether eye i carried a per-eye section.
func (b *STPS2) EyeActive(i int) bool {
	return i >= 0 && i < len(b.IfEye) && b.IfEye[i] == 1
}

func DecodeSTPS2(payload []byte, opts ...Option) (*STPS2, error) {
	r := newReader("stps2", payload, 8, opts)
	b := &STPS2{}

	r.enter("header")
	b.MaxEye = r.i32()
	b.IfEye = r.i32s(int(b.MaxEye))
	if err := r.finish(); err != nil {
		return nil, err
	}

	n := len(b.IfEye)
	b.PLog = make([]float32, n)
	b.RVec = make([]float32, n)
	b.RWalk = make([]float32, n)
	b.Ang = make([]float32, n)
	b.AveTime = make([]float32, n)
	b.SigmaTime = make([]float32, n)
	b.AvePhot = make([]float32, n)
	b.SigmaPhot = make([]float32, n)
	b.Lifetime = make([]float32, n)
	b.TotalLifetime = make([]float32, n)
	b.InTimeTubes = make([]int32, n)
	b.Upward = make([]int8, n)

	for i := 0; i < n && r.err == nil; i++ {
		if !b.EyeActive(i) {
			continue
		}
		r.enter("eye %d", i)
		b.PLog[i] = r.f32()
		b.RVec[i] = r.f32()
		b.RWalk[i] = r.f32()
		b.Ang[i] = r.f32()
		b.AveTime[i] = r.f32()
		b.SigmaTime[i] = r.f32()
		b.AvePhot[i] = r.f32()
		b.SigmaPhot[i] = r.f32()
		b.Lifetime[i] = r.f32()
		b.TotalLifetime[i] = r.f32()
		b.InTimeTubes[i] = r.i32()
		b.Upward[i] = r.i8()
	}
	if err := r.finish(); err != nil {
		return nil, err
	}
	b.End = r.c.Offset()
	return b, nil
}
