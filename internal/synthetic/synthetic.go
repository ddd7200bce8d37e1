// Package synthetic generates internally consistent claims and applications
// for demos, load tests and scorer calibration. Output depends only on the
// supplied random source.
package synthetic

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	firstNames = []string{"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
		"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica", "Thomas", "Sarah"}
	lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson", "Anderson", "Taylor", "Moore"}
	providers = []string{"City General Hospital", "Riverside Medical Center", "Northside Clinic",
		"Lakeview Physical Therapy", "Summit Orthopedics", "Harbor Urgent Care", "Valley Imaging"}
	incidents = []string{"Slip and fall at home", "Rear-end vehicle collision", "Sports injury during soccer match",
		"Workplace back strain", "Water damage from burst pipe", "Dog bite", "Fractured wrist after cycling accident"}

	occupations = []string{"Accountant", "Teacher", "Software Engineer", "Nurse", "Sales Manager",
		"Graphic Designer", "Pharmacist", "Architect", "Lawyer", "Retail Associate"}
	hazardous  = []string{"Roofer", "Commercial Pilot", "Firefighter", "Logger", "Commercial Fisherman"}
	conditions = []string{"hypertension", "type 2 diabetes", "asthma", "high cholesterol", "sleep apnea", "arthritis"}

	highRisk    = []string{"Construction", "Mining", "Logging", "Oil and Gas"}
	otherSector = []string{"Software", "Retail", "Consulting", "Healthcare", "Hospitality", "Education",
		"Manufacturing", "Transportation", "Agriculture", "Warehousing", "Financial Services"}
	companySuffix = []string{"Holdings", "Group", "Industries", "Partners", "Services", "Co."}
)

func pick[T any](rng *rand.Rand, list []T) T {
	return list[rng.Intn(len(list))]
}

// between returns an integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func chance(rng *rand.Rand, p float64) bool {
	return rng.Float64() < p
}

func person(rng *rand.Rand) string {
	return pick(rng, firstNames) + " " + pick(rng, lastNames)
}

func roundTo(v, unit float64) float64 {
	return math.Round(v/unit) * unit
}

func addDays(d domain.Date, days int) *domain.Date {
	out := domain.DateOf(d.AddDate(0, 0, days))
	return &out
}

// Claims generates count claims with incidents in the year before now.
// About 90% are filed within 30 days, 90% have treatment on or after the
// incident, 90% stay under the policy limit and 80% are filed by the
// policy holder.
func Claims(rng *rand.Rand, count int, now time.Time) []domain.ClaimInput {
	today := domain.DateOf(now)
	out := make([]domain.ClaimInput, count)

	for i := range out {
		incident := *addDays(today, -between(rng, 10, 400))

		filedAfter := between(rng, 0, 30)
		if !chance(rng, 0.9) {
			filedAfter = between(rng, 31, 120)
		}

		treatedAfter := between(rng, 0, 14)
		if !chance(rng, 0.9) {
			treatedAfter = -between(rng, 1, 10)
		}

		amount := roundTo(500+rng.Float64()*74500, 0.01)
		if chance(rng, 0.15) {
			amount = roundTo(amount, 1000)
			if amount < 1000 {
				amount = 1000
			}
		}

		var limit float64
		if chance(rng, 0.9) {
			limit = roundTo(amount*(1.2+rng.Float64()*2), 5000)
			if limit <= amount {
				limit += 5000
			}
		} else {
			limit = math.Floor(amount * (0.6 + rng.Float64()*0.35))
		}

		holder := person(rng)
		claimant := holder
		if !chance(rng, 0.8) {
			claimant = person(rng)
			if claimant == holder {
				claimant = pick(rng, firstNames) + " " + pick(rng, lastNames) + " Jr."
			}
		}

		prior := 0
		switch r := rng.Float64(); {
		case r < 0.6:
			prior = between(rng, 0, 1)
		case r < 0.9:
			prior = between(rng, 2, 3)
		default:
			prior = between(rng, 4, 8)
		}

		out[i] = domain.ClaimInput{
			ClaimID:             fmt.Sprintf("CLM-%06d", i+1),
			ClaimantName:        domain.Ptr(claimant),
			PolicyHolderName:    domain.Ptr(holder),
			PolicyNumber:        domain.Ptr(fmt.Sprintf("POL-%08d", rng.Intn(100_000_000))),
			ClaimAmount:         domain.Ptr(amount),
			PolicyLimit:         domain.Ptr(limit),
			IncidentDate:        domain.Ptr(incident),
			ClaimDate:           addDays(incident, filedAfter),
			TreatmentDate:       addDays(incident, treatedAfter),
			PolicyStartDate:     addDays(incident, -between(rng, 1, 1500)),
			PriorClaimsCount:    domain.Ptr(prior),
			ProviderName:        domain.Ptr(pick(rng, providers)),
			IncidentDescription: domain.Ptr(pick(rng, incidents)),
		}
	}
	return out
}

// Applications generates count applications, about half individual.
// Roughly 15% of individuals are current smokers and 20% of companies
// operate in a high-risk industry.
func Applications(rng *rand.Rand, count int) []domain.ApplicationInput {
	out := make([]domain.ApplicationInput, count)
	for i := range out {
		id := fmt.Sprintf("APP-%06d", i+1)
		if chance(rng, 0.5) {
			out[i] = individualApplication(rng, id)
		} else {
			out[i] = companyApplication(rng, id)
		}
	}
	return out
}

func individualApplication(rng *rand.Rand, id string) domain.ApplicationInput {
	smoking := domain.SmokingNever
	switch r := rng.Float64(); {
	case r < 0.15:
		smoking = domain.SmokingCurrent
	case r < 0.35:
		smoking = domain.SmokingFormer
	}

	occupation := pick(rng, occupations)
	if chance(rng, 0.1) {
		occupation = pick(rng, hazardous)
	}

	var conds []string
	for n := rng.Intn(5) - 1; n > 0; n-- {
		conds = append(conds, pick(rng, conditions))
	}

	income := roundTo(25000+rng.Float64()*225000, 1000)
	return domain.ApplicationInput{
		ApplicationID:         id,
		ApplicantType:         domain.ApplicantIndividual,
		ApplicantName:         domain.Ptr(person(rng)),
		CoverageAmount:        roundTo(income*(5+rng.Float64()*30), 10000),
		Age:                   domain.Ptr(between(rng, 18, 80)),
		SmokingStatus:         domain.Ptr(smoking),
		BMI:                   domain.Ptr(roundTo(18+rng.Float64()*22, 0.1)),
		AnnualIncome:          domain.Ptr(income),
		Occupation:            domain.Ptr(occupation),
		PreExistingConditions: conds,
		CreditScore:           domain.Ptr(between(rng, 500, 850)),
	}
}

func companyApplication(rng *rand.Rand, id string) domain.ApplicationInput {
	industry := pick(rng, otherSector)
	if chance(rng, 0.2) {
		industry = pick(rng, highRisk)
	}

	osha := 0
	switch r := rng.Float64(); {
	case r < 0.6:
	case r < 0.9:
		osha = between(rng, 1, 2)
	default:
		osha = between(rng, 3, 6)
	}

	revenue := roundTo(200_000+rng.Float64()*49_800_000, 10_000)
	return domain.ApplicationInput{
		ApplicationID:    id,
		ApplicantType:    domain.ApplicantCompany,
		ApplicantName:    domain.Ptr(pick(rng, lastNames) + " " + pick(rng, companySuffix)),
		CoverageAmount:   roundTo(revenue*(0.1+rng.Float64()*2.4), 10_000),
		Industry:         domain.Ptr(industry),
		EmployeeCount:    domain.Ptr(between(rng, 5, 500)),
		YearsInBusiness:  domain.Ptr(between(rng, 0, 50)),
		AnnualRevenue:    domain.Ptr(revenue),
		OSHAIncidents:    domain.Ptr(osha),
		PriorClaimsCount: domain.Ptr(between(rng, 0, 6)),
		HasSafetyProgram: domain.Ptr(chance(rng, 0.5)),
	}
}
