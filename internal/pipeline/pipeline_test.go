package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/history"
	"github.com/opensource-finance/harrier/internal/intake"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/underwriting"
	"github.com/opensource-finance/harrier/internal/validation"
)

const tenantID = "tenant-001"

type fakeExtractor struct {
	fields []domain.ExtractedField
	err    error
	asked  []domain.FieldDefinition
}

func (f *fakeExtractor) Extract(_ context.Context, _ domain.Upload, defs []domain.FieldDefinition) (*domain.ExtractionResult, error) {
	f.asked = defs
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ExtractionResult{Fields: f.fields}, nil
}

type fixture struct {
	pipeline *Pipeline
	repo     *repository.SQLRepository
	cache    *cache.LRUCache
	bus      *bus.ChannelBus
	ext      *fakeExtractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "pipeline.db"),
	})
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	fs, err := fraud.NewScorer(domain.DefaultFraudTiers())
	if err != nil {
		t.Fatalf("fraud scorer: %v", err)
	}
	us, err := underwriting.NewScorer(domain.DefaultUnderwritingTiers())
	if err != nil {
		t.Fatalf("underwriting scorer: %v", err)
	}
	validator, err := validation.NewEngine()
	if err != nil {
		t.Fatalf("validation engine: %v", err)
	}

	lru := cache.NewLRUCache(100)
	b := bus.NewChannelBus(100)
	t.Cleanup(func() { b.Close() })
	ext := &fakeExtractor{}

	p, err := New(fs, us,
		WithRepository(repo),
		WithCache(lru, time.Hour),
		WithBus(b),
		WithHistory(history.NewService(repo, 365*24*time.Hour)),
		WithDocuments(ext, validator, validation.NewRuleSet(), domain.DefaultConfig().Upload),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return &fixture{pipeline: p, repo: repo, cache: lru, bus: b, ext: ext}
}

// listen collects payloads published on topic for the test tenant.
func (f *fixture) listen(t *testing.T, topic string) <-chan []byte {
	t.Helper()
	ch := make(chan []byte, 8)
	_, err := f.bus.Subscribe(context.Background(), tenantID, topic, func(_ context.Context, msg *domain.Message) error {
		ch <- msg.Payload
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return ch
}

func await(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func highRiskClaim() domain.ClaimInput {
	incident, _ := domain.ParseDate("2024-03-01")
	treatment, _ := domain.ParseDate("2024-02-20")
	filed, _ := domain.ParseDate("2024-02-25")
	return domain.ClaimInput{
		ClaimID:          "CLM-9",
		ClaimantName:     domain.Ptr("John Smith"),
		PolicyHolderName: domain.Ptr("Jane Doe"),
		ClaimAmount:      domain.Ptr(60000.0),
		PolicyLimit:      domain.Ptr(50000.0),
		IncidentDate:     &incident,
		TreatmentDate:    &treatment,
		ClaimDate:        &filed,
		PriorClaimsCount: domain.Ptr(7),
	}
}

func TestScoreClaimRecordsAndAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assessed := f.listen(t, domain.TopicFraudAssessed)
	alerts := f.listen(t, domain.TopicAlert)

	a, err := f.pipeline.ScoreClaim(ctx, tenantID, highRiskClaim())
	if err != nil {
		t.Fatalf("ScoreClaim failed: %v", err)
	}
	if a.RiskLevel != domain.RiskHigh {
		t.Fatalf("expected high risk, got %s", a.RiskLevel)
	}

	stored, err := f.repo.GetAssessment(ctx, tenantID, a.ID)
	if err != nil {
		t.Fatalf("expected stored assessment: %v", err)
	}
	if stored.Kind != domain.KindFraud || stored.Subject != "john smith" || stored.Score != a.OverallScore {
		t.Errorf("unexpected record: %+v", stored)
	}

	var event domain.FraudAssessment
	if err := json.Unmarshal(await(t, assessed), &event); err != nil {
		t.Fatalf("bad assessed event: %v", err)
	}
	if event.ID != a.ID {
		t.Errorf("expected event for %s, got %s", a.ID, event.ID)
	}

	var alert domain.Alert
	if err := json.Unmarshal(await(t, alerts), &alert); err != nil {
		t.Fatalf("bad alert: %v", err)
	}
	if alert.AssessmentID != a.ID || alert.Tier != domain.RiskHigh || alert.Kind != domain.KindFraud {
		t.Errorf("unexpected alert: %+v", alert)
	}
}

func TestScoreClaimNoAlertForLowRisk(t *testing.T) {
	f := newFixture(t)
	alerts := f.listen(t, domain.TopicAlert)

	a, err := f.pipeline.ScoreClaim(context.Background(), tenantID, domain.ClaimInput{ClaimID: "CLM-1"})
	if err != nil {
		t.Fatalf("ScoreClaim failed: %v", err)
	}
	if a.RiskLevel != domain.RiskLow {
		t.Fatalf("expected low risk, got %s", a.RiskLevel)
	}
	select {
	case <-alerts:
		t.Error("low risk claim must not alert")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScoreClaimHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := domain.ClaimInput{
		ClaimantName:     domain.Ptr("Alice Brown"),
		PolicyHolderName: domain.Ptr("Alice Brown"),
	}

	first, err := f.pipeline.ScoreClaim(ctx, tenantID, claim)
	if err != nil {
		t.Fatalf("ScoreClaim failed: %v", err)
	}
	if first.DerivedPriorClaims == nil || *first.DerivedPriorClaims != 0 {
		t.Fatalf("expected derived prior count 0, got %v", first.DerivedPriorClaims)
	}

	second, err := f.pipeline.ScoreClaim(ctx, tenantID, claim)
	if err != nil {
		t.Fatalf("ScoreClaim failed: %v", err)
	}
	if second.DerivedPriorClaims == nil || *second.DerivedPriorClaims != 1 {
		t.Errorf("expected derived prior count 1, got %v", second.DerivedPriorClaims)
	}
	if second.InputData.PriorClaimsCount != nil {
		t.Errorf("input must be kept as submitted, got prior count %d", *second.InputData.PriorClaimsCount)
	}
	if claim.PriorClaimsCount != nil {
		t.Error("caller's claim must not be modified")
	}

	supplied := claim
	supplied.PriorClaimsCount = domain.Ptr(4)
	third, err := f.pipeline.ScoreClaim(ctx, tenantID, supplied)
	if err != nil {
		t.Fatalf("ScoreClaim failed: %v", err)
	}
	if third.DerivedPriorClaims != nil || *third.InputData.PriorClaimsCount != 4 {
		t.Errorf("supplied count must win, got derived=%v input=%v", third.DerivedPriorClaims, third.InputData.PriorClaimsCount)
	}
}

func TestRescoreSameClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claim := domain.ClaimInput{
		ClaimID:          "CLM-42",
		ClaimantName:     domain.Ptr("Dana Reyes"),
		PolicyHolderName: domain.Ptr("Dana Reyes"),
		ClaimAmount:      domain.Ptr(2400.0),
		PolicyLimit:      domain.Ptr(25000.0),
	}

	var scores []int
	for i := 0; i < 6; i++ {
		a, err := f.pipeline.ScoreClaim(ctx, tenantID, claim)
		if err != nil {
			t.Fatalf("ScoreClaim #%d failed: %v", i+1, err)
		}
		if a.DerivedPriorClaims == nil || *a.DerivedPriorClaims != 0 {
			t.Errorf("rescore #%d: expected 0 prior claims, got %v", i+1, a.DerivedPriorClaims)
		}
		if a.InputData.PriorClaimsCount != nil {
			t.Errorf("rescore #%d: input changed to %d prior claims", i+1, *a.InputData.PriorClaimsCount)
		}
		scores = append(scores, a.OverallScore)
	}
	for i, s := range scores {
		if s != scores[0] {
			t.Fatalf("expected identical scores across rescores, got %v (index %d)", scores, i)
		}
	}

	other := claim
	other.ClaimID = "CLM-43"
	a, err := f.pipeline.ScoreClaim(ctx, tenantID, other)
	if err != nil {
		t.Fatalf("ScoreClaim failed: %v", err)
	}
	if a.DerivedPriorClaims == nil || *a.DerivedPriorClaims != 1 {
		t.Errorf("expected CLM-42 to count once for CLM-43, got %v", a.DerivedPriorClaims)
	}
}

func TestScoreApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alerts := f.listen(t, domain.TopicAlert)

	a, err := f.pipeline.ScoreApplication(ctx, tenantID, domain.ApplicationInput{
		ApplicantType:         domain.ApplicantIndividual,
		ApplicantName:         domain.Ptr("Old Smoker"),
		CoverageAmount:        250000,
		Age:                   domain.Ptr(72),
		SmokingStatus:         domain.Ptr(domain.SmokingCurrent),
		BMI:                   domain.Ptr(36.0),
		PreExistingConditions: []string{"diabetes", "hypertension", "asthma"},
		Occupation:            domain.Ptr("Commercial Pilot"),
	})
	if err != nil {
		t.Fatalf("ScoreApplication failed: %v", err)
	}
	if a.IsApproved {
		t.Fatal("expected declined application")
	}

	var alert domain.Alert
	if err := json.Unmarshal(await(t, alerts), &alert); err != nil {
		t.Fatalf("bad alert: %v", err)
	}
	if alert.Kind != domain.KindUnderwriting || alert.Tier != domain.TierDecline {
		t.Errorf("unexpected alert: %+v", alert)
	}

	if _, err := f.pipeline.ScoreApplication(ctx, tenantID, domain.ApplicationInput{ApplicantType: "trust"}); !errors.Is(err, underwriting.ErrUnknownApplicantType) {
		t.Errorf("expected ErrUnknownApplicantType, got %v", err)
	}
}

func TestAssessmentLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.pipeline.ScoreClaim(ctx, tenantID, domain.ClaimInput{ClaimID: "CLM-2"})
	if err != nil {
		t.Fatalf("ScoreClaim failed: %v", err)
	}

	t.Run("FromCache", func(t *testing.T) {
		rec, err := f.pipeline.Assessment(ctx, tenantID, a.ID)
		if err != nil || rec == nil {
			t.Fatalf("expected cached record, got %v (%v)", rec, err)
		}
		if f.cache.Stats().Hits == 0 {
			t.Error("expected a cache hit")
		}
	})

	t.Run("FromStore", func(t *testing.T) {
		_ = f.cache.Close()
		rec, err := f.pipeline.Assessment(ctx, tenantID, a.ID)
		if err != nil {
			t.Fatalf("expected stored record: %v", err)
		}
		var payload domain.FraudAssessment
		if err := json.Unmarshal(rec.Payload, &payload); err != nil || payload.ID != a.ID {
			t.Errorf("unexpected payload: %s (%v)", rec.Payload, err)
		}
		cached, _ := cache.GetAssessment(ctx, f.cache, tenantID, a.ID)
		if cached == nil {
			t.Error("expected cache to be refilled")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := f.pipeline.Assessment(ctx, tenantID, "nope"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestScoreBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	claims, err := f.pipeline.ScoreClaimBatch(ctx, []json.RawMessage{
		json.RawMessage(`{"claimId":"a","claimAmount":100}`),
		json.RawMessage(`"not an object"`),
	})
	if err != nil {
		t.Fatalf("ScoreClaimBatch failed: %v", err)
	}
	if claims.TotalCount != 1 || claims.RejectedCount != 1 {
		t.Errorf("expected 1 scored and 1 rejected, got %d/%d", claims.TotalCount, claims.RejectedCount)
	}

	apps, err := f.pipeline.ScoreApplicationBatch(ctx, []json.RawMessage{
		json.RawMessage(`{"applicantType":"company","coverageAmount":100000,"industry":"retail"}`),
	})
	if err != nil {
		t.Fatalf("ScoreApplicationBatch failed: %v", err)
	}
	if apps.TotalCount != 1 {
		t.Errorf("expected 1 scored application, got %d", apps.TotalCount)
	}
}

func TestProcessDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	extracted := f.listen(t, domain.TopicDocumentExtracted)

	if err := f.repo.SaveFieldDefinition(ctx, tenantID, &domain.FieldDefinition{
		ID: "f-total", Name: "total", Label: "Total Amount", Type: "currency",
	}); err != nil {
		t.Fatalf("SaveFieldDefinition: %v", err)
	}
	if err := f.repo.SaveValidationRule(ctx, tenantID, &domain.ValidationRule{
		ID:         "r-limit",
		Name:       "Approval limit",
		Conditions: []domain.Condition{{Field: "Total Amount", Operator: domain.OpGreaterThan, Value: "10000"}},
		Logic:      domain.LogicAll,
		Action:     domain.ActionFail,
		Message:    "Total exceeds approval limit",
		Enabled:    true,
	}); err != nil {
		t.Fatalf("SaveValidationRule: %v", err)
	}
	if n, err := f.pipeline.ReloadAllRules(ctx); err != nil || n != 1 {
		t.Fatalf("expected 1 rule loaded, got %d (%v)", n, err)
	}

	f.ext.fields = []domain.ExtractedField{
		{Label: "Total Amount", Value: "$12,000", Confidence: 0.9},
		{Label: "Vendor", Value: "Acme", Confidence: 0.8},
	}

	doc, err := f.pipeline.ProcessDocument(ctx, tenantID, "invoice.pdf", []byte("%PDF-1.7\n%test document\n"))
	if err != nil {
		t.Fatalf("ProcessDocument failed: %v", err)
	}
	if len(f.ext.asked) != 1 || f.ext.asked[0].Label != "Total Amount" {
		t.Errorf("expected field definitions passed to extractor, got %+v", f.ext.asked)
	}
	if doc.Verdict == nil || doc.Verdict.Status != domain.VerdictFail {
		t.Fatalf("expected failing verdict, got %+v", doc.Verdict)
	}
	if doc.ContentType != "application/pdf" {
		t.Errorf("expected sniffed pdf, got %s", doc.ContentType)
	}
	await(t, extracted)

	stored, err := f.pipeline.Document(ctx, tenantID, doc.ID)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if stored.Verdict == nil || stored.Verdict.Status != domain.VerdictFail {
		t.Errorf("expected stored verdict, got %+v", stored.Verdict)
	}

	t.Run("Revalidate", func(t *testing.T) {
		if err := f.repo.DeleteValidationRule(ctx, tenantID, "r-limit"); err != nil {
			t.Fatalf("DeleteValidationRule: %v", err)
		}
		if _, err := f.pipeline.ReloadAllRules(ctx); err != nil {
			t.Fatalf("ReloadAllRules: %v", err)
		}
		doc, err := f.pipeline.RevalidateDocument(ctx, tenantID, doc.ID)
		if err != nil {
			t.Fatalf("RevalidateDocument failed: %v", err)
		}
		if doc.Verdict.Status != domain.VerdictPending {
			t.Errorf("expected pending with no rules, got %s", doc.Verdict.Status)
		}
	})

	t.Run("RejectsUnsupportedUpload", func(t *testing.T) {
		_, err := f.pipeline.ProcessDocument(ctx, tenantID, "notes.txt", []byte("plain text"))
		if !errors.Is(err, intake.ErrUnsupportedType) {
			t.Errorf("expected ErrUnsupportedType, got %v", err)
		}
	})

	t.Run("ExtractionFailure", func(t *testing.T) {
		f.ext.err = &extraction.StatusError{Code: 503}
		_, err := f.pipeline.ProcessDocument(ctx, tenantID, "invoice.pdf", []byte("%PDF-1.7\n"))
		var se *extraction.StatusError
		if !errors.As(err, &se) {
			t.Errorf("expected StatusError, got %v", err)
		}
	})
}

func TestValidateInlineRules(t *testing.T) {
	f := newFixture(t)
	fields := []domain.ExtractedField{{Label: "Total", Value: "50"}}

	if v := f.pipeline.Validate(tenantID, fields, nil); v.Status != domain.VerdictPending {
		t.Errorf("expected pending without rules, got %s", v.Status)
	}

	inline := []domain.ValidationRule{{
		ID:         "inline",
		Name:       "Small totals",
		Conditions: []domain.Condition{{Field: "total", Operator: domain.OpLessThan, Value: "100"}},
		Logic:      domain.LogicAll,
		Action:     domain.ActionPass,
		Enabled:    true,
	}}
	if v := f.pipeline.Validate(tenantID, fields, inline); v.Status != domain.VerdictPass {
		t.Errorf("expected pass, got %s", v.Status)
	}
}

func TestExportCSV(t *testing.T) {
	doc := &domain.Document{
		Fields: []domain.ExtractedField{
			{Label: "Total Amount", Value: "$12,000", Confidence: 0.9},
			{Label: "Vendor", Value: "Acme, Inc.", Confidence: 0.75},
			{Label: "Date", Value: "2024-01-01", Confidence: 1},
		},
		Verdict: &domain.Verdict{Results: []domain.RuleResult{
			{Passed: false, Conditions: []domain.ConditionResult{{Field: "total amount"}}},
			{Passed: true, Conditions: []domain.ConditionResult{{Field: "Vendor"}, {Field: "Total Amount"}}},
		}},
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, doc); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	want := [][]string{
		{"label", "value", "confidence", "status"},
		{"Total Amount", "$12,000", "0.90", FieldFailed},
		{"Vendor", "Acme, Inc.", "0.75", FieldPassed},
		{"Date", "2024-01-01", "1.00", FieldUnchecked},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d: expected %q, got %q", i, j, want[i][j], rows[i][j])
			}
		}
	}
}
