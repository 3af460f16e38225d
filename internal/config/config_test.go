package config

import "testing"

func TestDefaults(t *testing.T) {
	o := EmptyOptions()

	if got, want := o.GetLoadMaxSize(), int64(50*1000*1000); got != want {
		t.Errorf("GetLoadMaxSize() = %d, want %d", got, want)
	}
	if got, want := o.GetSeed(), int64(89); got != want {
		t.Errorf("GetSeed() = %d, want %d", got, want)
	}
	if got, want := o.GetSampleRows(), 20; got != want {
		t.Errorf("GetSampleRows() = %d, want %d", got, want)
	}
	if o.GetIncludeSample() {
		t.Error("GetIncludeSample() default should be false")
	}
	if !o.GetCoverage() {
		t.Error("GetCoverage() default should be true")
	}
	if o.GetPlots() {
		t.Error("GetPlots() default should be false")
	}
	if o.GetGeocoderURL() != "" {
		t.Error("GetGeocoderURL() default should be empty")
	}
	if o.GetSketchServiceURL() != "" {
		t.Error("GetSketchServiceURL() default should be empty")
	}
	if o.GetWorkerCount() != 0 {
		t.Error("GetWorkerCount() default should be 0 (GOMAXPROCS)")
	}
}

func TestValidate(t *testing.T) {
	bad := int64(-1)
	o := &Options{LoadMaxSize: &bad}
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for non-positive load_max_size")
	}

	badRows := -1
	o = &Options{SampleRows: &badRows}
	if err := o.Validate(); err == nil {
		t.Fatal("expected error for negative sample_rows")
	}

	good := int64(1000)
	o = &Options{LoadMaxSize: &good}
	if err := o.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadOptionsRejectsNonJSON(t *testing.T) {
	if _, err := LoadOptions("testdata/options.txt"); err == nil {
		t.Fatal("expected error for non-.json extension")
	}
}
