package corpus

import "testing"

func TestEntry_Comparable(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"both", Entry{ID: "a", Pose: []float32{1}, Semantic: []float32{1}}, true},
		{"no pose", Entry{ID: "b", Semantic: []float32{1}}, false},
		{"no semantic", Entry{ID: "c", Pose: []float32{1}}, false},
		{"empty pose", Entry{ID: "d", Pose: []float32{}, Semantic: []float32{1}}, false},
	}
	for _, tc := range tests {
		if got := tc.entry.Comparable(); got != tc.want {
			t.Errorf("%s: Comparable() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
