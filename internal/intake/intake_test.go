package intake

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestDecodeClaim(t *testing.T) {
	raw := []byte(`{
		"claimId": "C-1",
		"claimantName": "John Smith",
		"claimAmount": 60000,
		"policyLimit": 50000,
		"incidentDate": "2024-03-01",
		"claimDate": "2024-03-05T10:00:00Z"
	}`)

	claim, err := DecodeClaim(raw)
	if err != nil {
		t.Fatalf("DecodeClaim failed: %v", err)
	}
	if claim.ClaimID != "C-1" || *claim.ClaimAmount != 60000 {
		t.Errorf("unexpected claim: %+v", claim)
	}
	if claim.ClaimDate.String() != "2024-03-05" {
		t.Errorf("expected claim date 2024-03-05, got %s", claim.ClaimDate)
	}
	if claim.TreatmentDate != nil {
		t.Error("expected absent treatment date to stay nil")
	}
}

func TestDecodeClaimInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"malformed", `{"claimAmount":`, "malformed JSON"},
		{"not an object", `[1,2]`, "/"},
		{"empty object", `{}`, "/"},
		{"negative amount", `{"claimAmount": -5}`, "/claimAmount"},
		{"amount as text", `{"claimAmount": "lots"}`, "/claimAmount"},
		{"bad date", `{"incidentDate": "yesterday"}`, "/incidentDate"},
		{"impossible date", `{"incidentDate": "2024-13-45"}`, "invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClaim([]byte(tt.raw))
			if !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("expected ErrInvalidRecord, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error to mention %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestDecodeApplication(t *testing.T) {
	app, err := DecodeApplication([]byte(`{
		"applicantType": "individual",
		"coverageAmount": 500000,
		"age": 65,
		"smokingStatus": "current"
	}`))
	if err != nil {
		t.Fatalf("DecodeApplication failed: %v", err)
	}
	if app.ApplicantType != domain.ApplicantIndividual || *app.Age != 65 {
		t.Errorf("unexpected application: %+v", app)
	}

	invalid := []string{
		`{"coverageAmount": 1000}`,
		`{"applicantType": "partnership", "coverageAmount": 1000}`,
		`{"applicantType": "individual", "coverageAmount": 1000, "smokingStatus": "sometimes"}`,
		`{"applicantType": "company", "coverageAmount": 1000, "employeeCount": 2.5}`,
	}
	for _, raw := range invalid {
		if _, err := DecodeApplication([]byte(raw)); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("expected ErrInvalidRecord for %s, got %v", raw, err)
		}
	}
}

func TestDecodeAll(t *testing.T) {
	records := []json.RawMessage{
		json.RawMessage(`{"claimAmount": 100}`),
		json.RawMessage(`{"claimAmount": "x"}`),
		json.RawMessage(`{"claimAmount": 300}`),
	}

	var rejected []int
	decoded := DecodeAll(records, DecodeClaim, func(i int, err error) {
		rejected = append(rejected, i)
	})

	if len(decoded) != 2 {
		t.Fatalf("expected 2 decoded, got %d", len(decoded))
	}
	if decoded[0].Index != 0 || decoded[1].Index != 2 {
		t.Errorf("unexpected indexes: %d, %d", decoded[0].Index, decoded[1].Index)
	}
	if len(rejected) != 1 || rejected[0] != 1 {
		t.Errorf("expected record 1 rejected, got %v", rejected)
	}
}

func TestCheckUpload(t *testing.T) {
	cfg := domain.DefaultConfig().Upload
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	up, err := CheckUpload(cfg, "../../claims/form.pdf", pdf)
	if err != nil {
		t.Fatalf("CheckUpload failed for pdf: %v", err)
	}
	if up.ContentType != "application/pdf" || up.Filename != "form.pdf" {
		t.Errorf("unexpected upload: %s %s", up.ContentType, up.Filename)
	}

	if _, err := CheckUpload(cfg, "scan.png", png); err != nil {
		t.Errorf("CheckUpload failed for png: %v", err)
	}

	if _, err := CheckUpload(cfg, "notes.txt", []byte("plain text notes")); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := CheckUpload(cfg, "empty.pdf", nil); !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("expected ErrEmptyUpload, got %v", err)
	}

	small := cfg
	small.MaxBytes = 10
	if _, err := CheckUpload(small, "form.pdf", pdf); !errors.Is(err, ErrUploadTooLarge) {
		t.Errorf("expected ErrUploadTooLarge, got %v", err)
	}
}
