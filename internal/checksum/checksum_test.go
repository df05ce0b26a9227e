package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Fatalf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Fatal("distinct inputs collided")
	}
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	if tr.Matches("notes.json", []byte("[]")) {
		t.Fatal("unknown name should not match")
	}
	tr.Record("notes.json", []byte("[]"))
	if !tr.Matches("notes.json", []byte("[]")) {
		t.Fatal("recorded content should match")
	}
	if tr.Matches("notes.json", []byte(`[{"id":"1"}]`)) {
		t.Fatal("external edit should not match")
	}
	if !tr.Known("notes.json") {
		t.Fatal("expected name to be known")
	}
	tr.Forget("notes.json")
	if tr.Known("notes.json") || tr.Matches("notes.json", []byte("[]")) {
		t.Fatal("forgotten name still tracked")
	}
}
