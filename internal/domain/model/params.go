package model

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/beenjammin/basgra/internal/domain/simerr"
)

// ReseedDelayTolerance bounds the fractional part accepted for
// reseed_harv_delay.
const ReseedDelayTolerance = 1e-5

// ParameterSet holds one value per engine parameter. Field order is the
// engine's parameter order; the param tag is the engine key.
type ParameterSet struct {
	// initial state
	Log10CLVI  float64 `param:"LOG10CLVI"`
	Log10CRESI float64 `param:"LOG10CRESI"`
	Log10CRTI  float64 `param:"LOG10CRTI"`
	CSTI       float64 `param:"CSTI"`
	Log10LAII  float64 `param:"LOG10LAII"`
	PHENI      float64 `param:"PHENI"`
	TILTOTI    float64 `param:"TILTOTI"`
	FRTILGI    float64 `param:"FRTILGI"`
	LT50I      float64 `param:"LT50I"`

	// plant process
	CLAIV    float64 `param:"CLAIV"`
	COCRESMX float64 `param:"COCRESMX"`
	CSTAVM   float64 `param:"CSTAVM"`
	DAYLB    float64 `param:"DAYLB"`
	DAYLP    float64 `param:"DAYLP"`
	DLMXGE   float64 `param:"DLMXGE"`
	FSLAMIN  float64 `param:"FSLAMIN"`
	FSMAX    float64 `param:"FSMAX"`
	HAGERE   float64 `param:"HAGERE"`
	K        float64 `param:"K"`
	KLUETILG float64 `param:"KLUETILG"`
	LAICR    float64 `param:"LAICR"`
	LAIEFT   float64 `param:"LAIEFT"`
	LAITIL   float64 `param:"LAITIL"`
	LFWIDG   float64 `param:"LFWIDG"`
	LFWIDV   float64 `param:"LFWIDV"`
	NELLVM   float64 `param:"NELLVM"`
	PHENCR   float64 `param:"PHENCR"`
	PHY      float64 `param:"PHY"`
	RDRSCO   float64 `param:"RDRSCO"`
	RDRSMX   float64 `param:"RDRSMX"`
	RDRTEM   float64 `param:"RDRTEM"`
	RGENMX   float64 `param:"RGENMX"`
	ROOTDM   float64 `param:"ROOTDM"`
	RRDMAX   float64 `param:"RRDMAX"`
	RUBISC   float64 `param:"RUBISC"`
	SHAPE    float64 `param:"SHAPE"`
	SIMAX1T  float64 `param:"SIMAX1T"`
	SLAMAX   float64 `param:"SLAMAX"`
	TBASE    float64 `param:"TBASE"`
	TCRES    float64 `param:"TCRES"`
	TOPTGE   float64 `param:"TOPTGE"`
	TRANCO   float64 `param:"TRANCO"`
	YG       float64 `param:"YG"`

	// soil
	LAT      float64 `param:"LAT"`
	WCI      float64 `param:"WCI"`
	FWCAD    float64 `param:"FWCAD"`
	FWCWP    float64 `param:"FWCWP"`
	FWCFC    float64 `param:"FWCFC"`
	FWCWET   float64 `param:"FWCWET"`
	WCST     float64 `param:"WCST"`
	WpoolMax float64 `param:"WpoolMax"`

	// soil frost and snow
	Dparam       float64 `param:"Dparam"`
	FGAS         float64 `param:"FGAS"`
	FO2MX        float64 `param:"FO2MX"`
	Gamma        float64 `param:"gamma"`
	Hparam       float64 `param:"Hparam"`
	KRDRANAER    float64 `param:"KRDRANAER"`
	KRESPHARD    float64 `param:"KRESPHARD"`
	KRSR3H       float64 `param:"KRSR3H"`
	KRTOTAER     float64 `param:"KRTOTAER"`
	KSNOW        float64 `param:"KSNOW"`
	LAMBDAsoil   float64 `param:"LAMBDAsoil"`
	LDT50A       float64 `param:"LDT50A"`
	LDT50B       float64 `param:"LDT50B"`
	LT50MN       float64 `param:"LT50MN"`
	LT50MX       float64 `param:"LT50MX"`
	RATEDMX      float64 `param:"RATEDMX"`
	ReHardRedDay float64 `param:"reHardRedDay"`
	RHOnewSnow   float64 `param:"RHOnewSnow"`
	RHOpack      float64 `param:"RHOpack"`
	SWret        float64 `param:"SWret"`
	SWrf         float64 `param:"SWrf"`
	THARDMX      float64 `param:"THARDMX"`
	TmeltFreeze  float64 `param:"TmeltFreeze"`
	TrainSnow    float64 `param:"TrainSnow"`
	TsurfDiff    float64 `param:"TsurfDiff"`
	KLUETILG1    float64 `param:"KLUETILG1"`

	// vernalisation, tillering and senescence
	FRTILGG1I float64 `param:"FRTILGG1I"`
	DAYLG1G2  float64 `param:"DAYLG1G2"`
	RGRTG1G2  float64 `param:"RGRTG1G2"`
	RDRTMIN   float64 `param:"RDRTMIN"`
	TVERN     float64 `param:"TVERN"`
	CLAIV1    float64 `param:"CLAIV1"`
	RDRROOT   float64 `param:"RDRROOT"`
	RDRSTUB   float64 `param:"RDRSTUB"`
	FSTUB     float64 `param:"FSTUB"`

	// site and management
	DRATE       float64 `param:"DRATE"`
	ABASAL      float64 `param:"ABASAL"`
	OBASAL      float64 `param:"OBASAL"`
	BASALI      float64 `param:"BASALI"`
	DAYLMIN     float64 `param:"DAYLMIN"`
	IRRIGF      float64 `param:"IRRIGF"`
	IrrFrmPAW   float64 `param:"irr_frm_paw"`
	FixedRemove float64 `param:"fixed_removal"`
	OptHarvFrin float64 `param:"opt_harvfrin"`

	// reseeding
	ReseedHarvDelay float64 `param:"reseed_harv_delay"`
	ReseedLAI       float64 `param:"reseed_LAI"`
	ReseedTILG2     float64 `param:"reseed_TILG2"`
	ReseedTILG1     float64 `param:"reseed_TILG1"`
	ReseedTILV      float64 `param:"reseed_TILV"`
	ReseedCLV       float64 `param:"reseed_CLV"`
	ReseedCRES      float64 `param:"reseed_CRES"`
	ReseedCST       float64 `param:"reseed_CST"`
	ReseedCSTUB     float64 `param:"reseed_CSTUB"`
}

// paramField maps an engine key to its struct field index.
type paramField struct {
	key   string
	index int
}

var paramFields = func() []paramField {
	t := reflect.TypeOf(ParameterSet{})
	out := make([]paramField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("param")
		if key == "" {
			panic(fmt.Sprintf("model: ParameterSet field %s has no param tag", t.Field(i).Name))
		}
		out = append(out, paramField{key: key, index: i})
	}
	return out
}()

// ParameterKeys returns the engine parameter keys in engine order.
func ParameterKeys() []string {
	out := make([]string, len(paramFields))
	for i, f := range paramFields {
		out[i] = f.key
	}
	return out
}

// NumParameters is the length of the engine parameter vector.
func NumParameters() int { return len(paramFields) }

// ParametersFromMap converts a generic mapping into a ParameterSet. The key
// set must equal ParameterKeys exactly and every value must pass Validate.
func ParametersFromMap(m map[string]float64) (ParameterSet, error) {
	var p ParameterSet
	known := make(map[string]struct{}, len(paramFields))
	var missing []string
	v := reflect.ValueOf(&p).Elem()
	for _, f := range paramFields {
		known[f.key] = struct{}{}
		val, ok := m[f.key]
		if !ok {
			missing = append(missing, f.key)
			continue
		}
		v.Field(f.index).SetFloat(val)
	}
	var extra []string
	for k := range m {
		if _, ok := known[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(extra)
		field := ""
		if len(missing) > 0 {
			field = missing[0]
		} else {
			field = extra[0]
		}
		return ParameterSet{}, simerr.New(simerr.ErrConfiguration, "params.keys", field,
			"incorrect parameter keys: missing %v, unexpected %v", missing, extra)
	}
	if err := p.Validate(); err != nil {
		return ParameterSet{}, err
	}
	return p, nil
}

// Map returns the set as a generic mapping keyed by engine key.
func (p ParameterSet) Map() map[string]float64 {
	v := reflect.ValueOf(p)
	out := make(map[string]float64, len(paramFields))
	for _, f := range paramFields {
		out[f.key] = v.Field(f.index).Float()
	}
	return out
}

// Vector returns the values in engine order.
func (p ParameterSet) Vector() []float64 {
	v := reflect.ValueOf(p)
	out := make([]float64, len(paramFields))
	for i, f := range paramFields {
		out[i] = v.Field(f.index).Float()
	}
	return out
}

// FixedRemoval reports whether the fixed-removal harvest policy is active.
func (p ParameterSet) FixedRemoval() bool { return p.FixedRemove > 0.9 }

// Validate checks value finiteness and the reseed delay bounds.
func (p ParameterSet) Validate() error {
	v := reflect.ValueOf(p)
	for _, f := range paramFields {
		x := v.Field(f.index).Float()
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return simerr.New(simerr.ErrConfiguration, "params.finite", f.key, "value must be finite, got %v", x)
		}
	}
	d := p.ReseedHarvDelay
	if d < 1 {
		return simerr.New(simerr.ErrConfiguration, "params.reseed_harv_delay", "reseed_harv_delay",
			"harvest delay must be >= 1, got %v", d)
	}
	if frac := d - math.Floor(d); frac > ReseedDelayTolerance {
		return simerr.New(simerr.ErrConfiguration, "params.reseed_harv_delay", "reseed_harv_delay",
			"harvest delay must effectively be an integer, got %v", d)
	}
	return nil
}
