package adapters

import (
	"context"
	"strings"
	"testing"
)

func TestUserMessage_CarriesArtifactContext(t *testing.T) {
	msg := UserMessage(Request{
		Prompt:          "Identify the dominant pole.",
		Artifact:        "M1 d g s b nch W=10u L=1u",
		ArtifactPath:    "items/ota_5t/netlist.sp",
		Modality:        "spice_netlist",
		InventoryIDs:    []string{"M1", "CL"},
		RequireSections: []string{"Observations", "Answer"},
		AnswerFormat:    "markdown table",
	})
	for _, want := range []string{
		"Artifact modality: spice_netlist",
		"Inventory IDs you may cite: M1, CL",
		"Required sections: Observations, Answer",
		"Answer format: markdown table",
		"```spice\nM1 d g s b nch W=10u L=1u\n```",
		"Identify the dominant pole.",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("user message missing %q:\n%s", want, msg)
		}
	}
}

func TestUserMessage_OmitsEmptyArtifact(t *testing.T) {
	msg := UserMessage(Request{Prompt: "Design an OTA.", Modality: "spice_netlist"})
	if strings.Contains(msg, "```") {
		t.Errorf("no artifact means no fence:\n%s", msg)
	}
	if strings.Contains(msg, "Inventory IDs") || strings.Contains(msg, "Required sections") ||
		strings.Contains(msg, "Answer format") {
		t.Errorf("empty fields must be omitted:\n%s", msg)
	}
}

func TestDummy_CitesInventoryIDs(t *testing.T) {
	d := NewDummy()
	out, err := d.Predict(context.Background(), Request{
		InventoryIDs:    []string{"XM3", "Cc"},
		RequireSections: []string{"Observations", "Sizing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "[XM3, Cc]") {
		t.Errorf("answer must cite real inventory IDs:\n%s", out)
	}
	if !strings.Contains(out, "### Sizing") {
		t.Errorf("required sections must all be present:\n%s", out)
	}

	again, _ := d.Predict(context.Background(), Request{
		InventoryIDs:    []string{"XM3", "Cc"},
		RequireSections: []string{"Observations", "Sizing"},
	})
	if out != again {
		t.Error("dummy answers must be deterministic")
	}
}

func TestBuild_UnknownAdapter(t *testing.T) {
	if _, err := Build("gemini-ultra", Options{}); err == nil {
		t.Fatal("unknown adapter must error")
	}
}

func TestBuild_Dummy(t *testing.T) {
	a, err := Build("dummy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Name() != "dummy" {
		t.Errorf("name = %q", a.Name())
	}
}
