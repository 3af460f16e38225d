package types

import (
	"testing"

	"github.com/VIDA-NYU/datamart-profiler/internal/profiler/schema"
)

func TestDetectIntegerColumn(t *testing.T) {
	res := Detect("count", []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}, nil, nil)
	if res.StructuralType != schema.Integer {
		t.Fatalf("StructuralType = %q, want integer", res.StructuralType)
	}
}

func TestDetectFloatColumn(t *testing.T) {
	res := Detect("ratio", []string{"1.5", "2.25", "3.0", "4.75"}, nil, nil)
	if res.StructuralType != schema.Float {
		t.Fatalf("StructuralType = %q, want float", res.StructuralType)
	}
}

func TestDetectTextColumn(t *testing.T) {
	res := Detect("notes", []string{"hello world", "goodbye world", "some notes", "more text here"}, nil, nil)
	if res.StructuralType != schema.Text {
		t.Fatalf("StructuralType = %q, want text", res.StructuralType)
	}
	if !res.SemanticTypes.Has(schema.SemText) {
		t.Fatal("expected text semantic type on a free-text column")
	}
}

func TestDetectCategorical(t *testing.T) {
	values := []string{"red", "blue", "red", "blue", "red", "blue", "red", "blue", "green", "red"}
	res := Detect("color", values, nil, nil)
	if !res.SemanticTypes.Has(schema.Categorical) {
		t.Fatalf("expected categorical semantic type, got %v", res.SemanticTypes.Slice())
	}
}

func TestDetectID(t *testing.T) {
	values := []string{"u1", "u2", "u3", "u4", "u5"}
	res := Detect("user_id", values, nil, nil)
	if !res.SemanticTypes.Has(schema.ID) {
		t.Fatalf("expected id semantic type, got %v", res.SemanticTypes.Slice())
	}
}

func TestDetectBoolean(t *testing.T) {
	values := []string{"true", "false", "true", "true", "false"}
	res := Detect("flag", values, nil, nil)
	if !res.SemanticTypes.Has(schema.Boolean) {
		t.Fatalf("expected boolean semantic type, got %v", res.SemanticTypes.Slice())
	}
}

func TestDetectDateTime(t *testing.T) {
	values := []string{"2020-01-01", "2020-02-15", "2020-03-30", "2020-04-10"}
	res := Detect("created_at", values, nil, nil)
	if !res.SemanticTypes.Has(schema.DateTime) {
		t.Fatalf("expected date_time semantic type, got %v", res.SemanticTypes.Slice())
	}
	if len(res.Aux.Datetimes) != len(values) {
		t.Fatalf("Aux.Datetimes has %d entries, want %d", len(res.Aux.Datetimes), len(values))
	}
	if len(res.Aux.Timestamps) != len(values) {
		t.Fatalf("Aux.Timestamps has %d entries, want %d", len(res.Aux.Timestamps), len(values))
	}
}

func TestDetectLatitude(t *testing.T) {
	values := []string{"40.7", "40.8", "40.6", "40.9"}
	res := Detect("lat", values, nil, nil)
	if !res.SemanticTypes.Has(schema.Latitude) {
		t.Fatalf("expected latitude semantic type, got %v", res.SemanticTypes.Slice())
	}
}

func TestDetectLongitude(t *testing.T) {
	values := []string{"-73.9", "-74.0", "-73.8", "-74.1"}
	res := Detect("longitude", values, nil, nil)
	if !res.SemanticTypes.Has(schema.Longitude) {
		t.Fatalf("expected longitude semantic type, got %v", res.SemanticTypes.Slice())
	}
}

type stubResolver struct {
	level     int
	areas     []string
	resolved  int
}

func (s stubResolver) Resolve(columnName string, values []string) (int, []string, int) {
	return s.level, s.areas, s.resolved
}

func TestDetectAdmin(t *testing.T) {
	resolver := stubResolver{level: 2, areas: []string{"New York County"}, resolved: 3}
	values := []string{"New York", "Kings", "Queens"}
	res := Detect("county", values, resolver, nil)
	if !res.SemanticTypes.Has(schema.Admin) {
		t.Fatalf("expected admin semantic type, got %v", res.SemanticTypes.Slice())
	}
	if res.Aux.AdminLevel != 2 {
		t.Fatalf("Aux.AdminLevel = %d, want 2", res.Aux.AdminLevel)
	}
}

func TestManualAnnotationOverridesDetection(t *testing.T) {
	manual := &schema.ManualColumnAnnotation{
		StructuralType: schema.Text,
		SemanticTypes:  []string{schema.ID},
	}
	res := Detect("count", []string{"1", "2", "3"}, nil, manual)
	if res.StructuralType != schema.Text {
		t.Fatalf("manual override ignored: StructuralType = %q", res.StructuralType)
	}
	if !res.SemanticTypes.Has(schema.ID) || res.SemanticTypes.Len() != 1 {
		t.Fatalf("manual override ignored: SemanticTypes = %v", res.SemanticTypes.Slice())
	}
}

func TestDetectEmptyColumn(t *testing.T) {
	res := Detect("empty", []string{"", "", ""}, nil, nil)
	if res.StructuralType != schema.Missing {
		t.Fatalf("StructuralType = %q, want missing", res.StructuralType)
	}
}
