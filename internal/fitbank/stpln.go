package fitbank

// STPLN holds stereo plane fits. Unlike the other fit banks it reads its own
// bank id and version, so decoding starts at offset 0 by default.
type STPLN struct {
	BankID  int32 `json:"bank_id"`
	Version int32 `json:"bank_version"`

	JDay   int32   `json:"jday"`
	JSec   int32   `json:"jsec"`
	MSec   int32   `json:"msec"`
	NEye   int16   `json:"neye"`
	NMir   int16   `json:"nmir"`
	NTube  int16   `json:"ntube"`
	MaxEye int32   `json:"maxeye"`
	IfEye  []int32 `json:"if_eye"`

	EyeID        []int16      `json:"eyeid"`
	EyeNMir      []int16      `json:"eye_nmir"`
	EyeNGMir     []int16      `json:"eye_ngmir"`
	EyeNTube     []int16      `json:"eye_ntube"`
	EyeNGTube    []int16      `json:"eye_ngtube"`
	RMSDevPln    []float32    `json:"rmsdevpln"`
	RMSDevTim    []float32    `json:"rmsdevtim"`
	TrackLength  []float32    `json:"tracklength"`
	CrossingTime []float32    `json:"crossingtime"`
	PhPerGTube   []float32    `json:"ph_per_gtube"`
	NAmpWt       [][3]float32 `json:"n_ampwt"`
	ErrNAmpWt    [][6]float32 `json:"errn_ampwt"`

	MirID     []int16 `json:"mirid"`
	MirEye    []int16 `json:"mir_eye"`
	MirType   []int16 `json:"mir_type"`
	MirNGTube []int32 `json:"mir_ngtube"`
	MirTimeNS []int32 `json:"mirtime_ns"`

	IG        []int16 `json:"ig"`
	TubeEye   []int16 `json:"tube_eye"`
	Saturated []int32 `json:"saturated"`
	MirTubeID []int32 `json:"mir_tube_id"`

	End int `json:"-"`
}

// SaturationVersion is the first bank version carrying saturated and mir_tube_id.
const SaturationVersion = 2

func (b *STPLN) EyeActive(i int) bool {
	return i >= 0 && i < len(b.IfEye) && b.IfEye[i] == 1
}

func DecodeSTPLN(payload []byte, opts ...Option) (*STPLN, error) {
	r := newReader("stpln", payload, 0, opts)
	b := &STPLN{}

	r.enter("header")
	b.BankID = r.i32()
	b.Version = r.i32()
	b.JDay = r.i32()
	b.JSec = r.i32()
	b.MSec = r.i32()
	b.NEye = r.i16()
	b.NMir = r.i16()
	b.NTube = r.i16()
	b.MaxEye = r.i32()
	b.IfEye = r.i32s(int(b.MaxEye))
	if err := r.finish(); err != nil {
		return nil, err
	}

	n := len(b.IfEye)
	b.EyeID = make([]int16, n)
	b.EyeNMir = make([]int16, n)
	b.EyeNGMir = make([]int16, n)
	b.EyeNTube = make([]int16, n)
	b.EyeNGTube = make([]int16, n)
	b.RMSDevPln = make([]float32, n)
	b.RMSDevTim = make([]float32, n)
	b.TrackLength = make([]float32, n)
	b.CrossingTime = make([]float32, n)
	b.PhPerGTube = make([]float32, n)
	b.NAmpWt = make([][3]float32, n)
	b.ErrNAmpWt = make([][6]float32, n)

	for i := 0; i < n && r.err == nil; i++ {
		if !b.EyeActive(i) {
			continue
		}
		r.enter("eye %d", i)
		b.EyeID[i] = r.i16()
		b.EyeNMir[i] = r.i16()
		b.EyeNGMir[i] = r.i16()
		b.EyeNTube[i] = r.i16()
		b.EyeNGTube[i] = r.i16()
		b.RMSDevPln[i] = r.f32()
		b.RMSDevTim[i] = r.f32()
		b.TrackLength[i] = r.f32()
		b.CrossingTime[i] = r.f32()
		b.PhPerGTube[i] = r.f32()
		copy(b.NAmpWt[i][:], r.f32s(3))
		copy(b.ErrNAmpWt[i][:], r.f32s(6))
	}

	r.enter("mirrors")
	nmir := int(b.NMir)
	b.MirID = r.i16s(nmir)
	b.MirEye = r.i16s(nmir)
	b.MirType = r.i16s(nmir)
	b.MirNGTube = r.i32s(nmir)
	b.MirTimeNS = r.i32s(nmir)

	r.enter("tubes")
	ntube := int(b.NTube)
	b.IG = r.i16s(ntube)
	b.TubeEye = r.i16s(ntube)
	if b.Version >= SaturationVersion {
		b.Saturated = r.i32s(ntube)
		b.MirTubeID = r.i32s(ntube)
	} else if ntube >= 0 {
		b.Saturated = make([]int32, ntube)
		b.MirTubeID = make([]int32, ntube)
	}

	if err := r.finish(); err != nil {
		return nil, err
	}
	b.End = r.c.Offset()
	return b, nil
}
