package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleInventory = `{
  "elements": {
    "M1": {"type": "nch", "role": "input", "aliases": ["M_in"]},
    "M2": {"type": "pch", "role": "load"},
    "Cc": {"type": "cap"}
  },
  "nets": ["vout", "vinp"],
  "blocks": {"diff_pair": {"members": ["M1", "M2"]}}
}`

func writeItem(t *testing.T, dir string, questions string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "inventory.json"), []byte(sampleInventory), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "questions.jsonl"), []byte(questions), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover_SortedItemsAndQuestions(t *testing.T) {
	split := t.TempDir()
	writeItem(t, filepath.Join(split, "ota", "ota_folded"),
		`{"id": "q2", "track": "analysis", "modality": "spice_netlist"}
{"id": "q1", "track": "debugging", "modality": "spice_netlist"}
`)
	writeItem(t, filepath.Join(split, "bandgap", "bg_basic"),
		`{"id": "q1", "track": "analysis", "modality": "casIR"}
`)

	items, err := Discover(split)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Family != "bandgap" || items[1].Family != "ota" {
		t.Errorf("families out of order: %s, %s", items[0].Family, items[1].Family)
	}
	if items[1].ID != "ota_folded" {
		t.Errorf("ID = %q, want ota_folded", items[1].ID)
	}

	gotQ := []string{items[1].Questions[0].ID, items[1].Questions[1].ID}
	if diff := cmp.Diff([]string{"q1", "q2"}, gotQ); diff != "" {
		t.Errorf("question order (-want +got):\n%s", diff)
	}
}

func TestDiscover_MissingInventoryIsFatal(t *testing.T) {
	split := t.TempDir()
	dir := filepath.Join(split, "ota", "broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "questions.jsonl"), []byte(`{"id": "q1"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Discover(split); err == nil {
		t.Fatal("expected error for item without inventory.json")
	}
}

func TestDiscover_MalformedQuestionLine(t *testing.T) {
	split := t.TempDir()
	writeItem(t, filepath.Join(split, "ota", "bad"), "{not json}\n")
	if _, err := Discover(split); err == nil {
		t.Fatal("expected error for malformed question line")
	}
}

func TestInventory_AllIDs(t *testing.T) {
	item := loadSample(t)
	want := []string{"Cc", "M1", "M2", "diff_pair", "vinp", "vout"}
	if diff := cmp.Diff(want, item.Inventory.AllIDs()); diff != "" {
		t.Errorf("AllIDs (-want +got):\n%s", diff)
	}
}

func TestInventory_AliasMap(t *testing.T) {
	item := loadSample(t)
	amap := item.Inventory.AliasMap()
	if amap["M_in"] != "M1" {
		t.Errorf("alias M_in maps to %q, want M1", amap["M_in"])
	}
	if amap["M1"] != "M1" || amap["vout"] != "vout" || amap["diff_pair"] != "diff_pair" {
		t.Errorf("canonical names must map to themselves: %v", amap)
	}
}

func TestQuestion_InjectBug(t *testing.T) {
	cases := []struct {
		name string
		q    Question
		want bool
	}{
		{"debugging track defaults on", Question{Track: "debugging"}, true},
		{"analysis track defaults off", Question{Track: "analysis"}, false},
		{"meta overrides on", Question{Track: "analysis", Meta: map[string]any{"inject_bug": true}}, true},
		{"meta overrides off", Question{Track: "debugging", Meta: map[string]any{"inject_bug": false}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.InjectBug(); got != tc.want {
				t.Errorf("InjectBug() = %v, want %v", got, tc.want)
			}
		})
	}
}

func loadSample(t *testing.T) *Item {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ota_5t")
	writeItem(t, dir, `{"id": "q1", "track": "analysis", "modality": "spice_netlist"}`+"\n")
	item, err := LoadItem(dir)
	if err != nil {
		t.Fatalf("LoadItem: %v", err)
	}
	return item
}
