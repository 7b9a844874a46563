// Defaults from the user's ~/.jobinfo, applied before command line parsing.
//
// The file is a plain ini file.  All sections and keys are optional:
//
//   [output]
//   long = true
//
//   [hints]
//   cpu-eff-low = 0.75
//   cpu-eff-very-low = 0.5
//   mem-eff-low = 0.25
//   time-limit-io-ratio = 0.8
//
//   [gpu]
//   url = http://prometheus.example.com:9090
//   query = nvidia_gpu_duty_cycle{instance=~"{node}.*",minor_number="{gpu}"}
//   step = 60

package common

import (
	"errors"
	"os"
	"path"
	"strconv"

	ini "github.com/lars-t-hansen/ini"
)

// MT: Constant after initialization
var (
	p     = ini.NewParser()
	store *ini.Store

	outputSection = p.AddSection("output")
	OutputLong    = outputSection.AddString("long")

	hintsSection         = p.AddSection("hints")
	HintCpuEffLow        = hintsSection.AddString("cpu-eff-low")
	HintCpuEffVeryLow    = hintsSection.AddString("cpu-eff-very-low")
	HintMemEffLow        = hintsSection.AddString("mem-eff-low")
	HintTimeLimitIoRatio = hintsSection.AddString("time-limit-io-ratio")

	gpuSection = p.AddSection("gpu")
	GpuUrl     = gpuSection.AddString("url")
	GpuQuery   = gpuSection.AddString("query")
	GpuStep    = gpuSection.AddString("step")
)

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), ".jobinfo")
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			Log.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	store, err = p.Parse(input)
	if err != nil {
		Log.Errorf("Error in trying to parse %s: %s", fn, err.Error())
		return
	}
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

// Each of these replaces the passed-in compiled default if the ini file has the field and its
// value parses; an unparseable value is reported and ignored.

func ApplyDefault(sp *string, f *ini.Field) bool {
	if store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}

func ApplyDefaultBool(bp *bool, f *ini.Field) bool {
	if store == nil || !f.Present(store) {
		return false
	}
	v, err := strconv.ParseBool(f.StringVal(store))
	if err != nil {
		Log.Warningf("Bad boolean in ~/.jobinfo: %s", f.StringVal(store))
		return false
	}
	*bp = v
	return true
}

func ApplyDefaultFloat(fp *float64, f *ini.Field) bool {
	if store == nil || !f.Present(store) {
		return false
	}
	v, err := strconv.ParseFloat(f.StringVal(store), 64)
	if err != nil {
		Log.Warningf("Bad number in ~/.jobinfo: %s", f.StringVal(store))
		return false
	}
	*fp = v
	return true
}

func ApplyDefaultInt(ip *int, f *ini.Field) bool {
	if store == nil || !f.Present(store) {
		return false
	}
	v, err := strconv.Atoi(f.StringVal(store))
	if err != nil {
		Log.Warningf("Bad integer in ~/.jobinfo: %s", f.StringVal(store))
		return false
	}
	*ip = v
	return true
}
