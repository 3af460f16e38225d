package kmeans

import "testing"

func oneD(vs ...float64) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = []float64{v}
	}
	return out
}

func TestRunSeparatesObviousClusters(t *testing.T) {
	data := oneD(0, 1, 0.5, 100, 101, 99.5)
	clusters := Run(data, 2, 89)

	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if clusters[0].Centroid[0] > clusters[1].Centroid[0] {
		t.Fatalf("clusters not sorted ascending by centroid: %v", clusters)
	}
	if len(clusters[0].Members) != 3 || len(clusters[1].Members) != 3 {
		t.Fatalf("expected a 3/3 split, got %d/%d", len(clusters[0].Members), len(clusters[1].Members))
	}
}

func TestRunDeterministic(t *testing.T) {
	data := oneD(3, 1, 4, 1, 5, 9, 2, 6, 53, 58)
	a := Run(data, 3, 89)
	b := Run(data, 3, 89)

	if len(a) != len(b) {
		t.Fatalf("non-deterministic cluster count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Centroid[0] != b[i].Centroid[0] {
			t.Fatalf("non-deterministic centroid at %d: %v vs %v", i, a[i].Centroid, b[i].Centroid)
		}
	}
}

func TestRunHandlesFewerPointsThanK(t *testing.T) {
	data := oneD(1, 2)
	clusters := Run(data, 3, 89)
	total := 0
	for _, c := range clusters {
		total += len(c.Members)
	}
	if total != 2 {
		t.Fatalf("expected all 2 points assigned, got %d across %d clusters", total, len(clusters))
	}
}

func TestRunEmptyInput(t *testing.T) {
	if got := Run(nil, 3, 89); got != nil {
		t.Fatalf("Run(nil) = %v, want nil", got)
	}
}

func TestDefaultClustererSatisfiesInterface(t *testing.T) {
	var c Clusterer = Default
	out := c.Cluster(oneD(1, 2, 3), 1, 89)
	if len(out) != 1 || len(out[0].Members) != 3 {
		t.Fatalf("unexpected result from Default clusterer: %+v", out)
	}
}
