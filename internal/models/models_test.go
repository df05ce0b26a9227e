package models

import "testing"

func TestThemeValidate(t *testing.T) {
	if err := (ThemeSetting{Theme: ThemeDarker}).Validate(); err != nil {
		t.Fatalf("darker should be valid: %v", err)
	}
	if err := (ThemeSetting{Theme: "neon"}).Validate(); err == nil {
		t.Fatal("unknown theme should fail validation")
	}
}

func TestNoteValidateRequiresID(t *testing.T) {
	if err := (Note{Title: "x"}).Validate(); err == nil {
		t.Fatal("note without id should fail validation")
	}
}

func TestTrashIndexRemove(t *testing.T) {
	ix := TrashIndex{Items: []TrashedItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	if !ix.Remove("b") {
		t.Fatal("expected b to be removed")
	}
	if ix.Remove("b") {
		t.Fatal("second remove should report absent")
	}
	if len(ix.Items) != 2 || ix.Find("c") != 1 {
		t.Errorf("items = %+v", ix.Items)
	}
}

func TestNormalizeLabel(t *testing.T) {
	if got := NormalizeLabel("  Work "); got != "Work" {
		t.Errorf("NormalizeLabel = %q", got)
	}
	if got := NormalizeLabel("   "); got != "" {
		t.Errorf("blank label should normalize to unfiled, got %q", got)
	}
}
