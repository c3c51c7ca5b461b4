package integration

import (
	"net/http"
	"testing"
)

func TestInteractionRulesEndpoint(t *testing.T) {
	e := newServer()

	rec := doJSON(t, e, http.MethodGet, "/api/v1/interaction-rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var rules []struct {
		DrugA    string `json:"drug_a"`
		DrugB    string `json:"drug_b"`
		Severity string `json:"severity"`
	}
	decode(t, rec, &rules)
	if len(rules) != 12 {
		t.Fatalf("expected 12 built-in rules, got %d", len(rules))
	}
	if rules[0].DrugA != "nitroglycerin" || rules[0].DrugB != "sildenafil" {
		t.Errorf("unexpected first rule: %s + %s", rules[0].DrugA, rules[0].DrugB)
	}
}

func TestInteractionCheckEndpoint(t *testing.T) {
	e := newServer()

	t.Run("KnownInteraction", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/interaction-check", map[string]interface{}{
			"medications": []map[string]string{
				{"name": "Warfarin 5mg"},
			},
			"proposed_medication": "Aspirin",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			ProposedMedication string `json:"proposed_medication"`
			Warnings           []struct {
				Severity string `json:"severity"`
				Source   string `json:"source"`
			} `json:"warnings"`
		}
		decode(t, rec, &body)
		if body.ProposedMedication != "Aspirin" {
			t.Errorf("expected echo of proposed medication, got %q", body.ProposedMedication)
		}
		if len(body.Warnings) != 1 {
			t.Fatalf("expected 1 warning, got %d", len(body.Warnings))
		}
		if body.Warnings[0].Severity != "High" || body.Warnings[0].Source != "DRUG_DB" {
			t.Errorf("expected High DRUG_DB warning, got %s/%s", body.Warnings[0].Severity, body.Warnings[0].Source)
		}
	})

	t.Run("NoInteraction", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/interaction-check", map[string]interface{}{
			"medications": []map[string]string{
				{"name": "Metformin"},
			},
			"proposed_medication": "Loratadine",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Warnings []struct {
				Severity string `json:"severity"`
			} `json:"warnings"`
		}
		decode(t, rec, &body)
		if len(body.Warnings) != 0 {
			t.Errorf("expected no warnings, got %d", len(body.Warnings))
		}
	})

	t.Run("EmptyMedicationList", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/api/v1/interaction-check", map[string]interface{}{
			"proposed_medication": "Sildenafil",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Warnings []struct {
				Severity string `json:"severity"`
			} `json:"warnings"`
		}
		decode(t, rec, &body)
		if len(body.Warnings) != 0 {
			t.Errorf("expected empty warning list, got %d", len(body.Warnings))
		}
	})
}
