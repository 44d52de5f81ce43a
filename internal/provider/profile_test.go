package provider

import "testing"

func TestProfileTable(t *testing.T) {
	for key, p := range Profiles {
		if p.Name != key {
			t.Fatalf("profile %q names itself %q", key, p.Name)
		}
		if p.CredentialKey == "" || p.DefaultModel == "" {
			t.Fatalf("profile %q is incomplete: %+v", key, p)
		}
	}

	hf := Profiles[HuggingFace]
	if hf.CostTier != CostFree || hf.ResponseShape != ShapeBinary {
		t.Fatalf("huggingface profile %+v", hf)
	}
	oa := Profiles[OpenAI]
	if oa.CostTier != CostPaid || oa.ResponseShape != ShapeJSON {
		t.Fatalf("openai profile %+v", oa)
	}
}
