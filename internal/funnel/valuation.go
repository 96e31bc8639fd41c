package funnel

import (
	"github.com/salestext/dtax-crm/internal/prospect/domain"
	"github.com/salestext/dtax-crm/internal/rates"
)

// Stage is one band of the sales funnel with its win probability.
type Stage struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	Probability float64         `json:"probability"`
	Statuses    []domain.Status `json:"statuses"`
}

// Stages is the fixed funnel definition in pipeline order. LOST is not a
// stage; lost prospects carry no pipeline value.
var Stages = []Stage{
	{Key: "new", Label: "Nye", Probability: 5, Statuses: []domain.Status{domain.StatusNew}},
	{Key: "contacted", Label: "Kontaktet", Probability: 10, Statuses: []domain.Status{domain.StatusContacted}},
	{Key: "qualified", Label: "Kvalifisert", Probability: 25, Statuses: []domain.Status{domain.StatusQualified}},
	{Key: "in_progress", Label: "I prosess", Probability: 40, Statuses: []domain.Status{domain.StatusInProgress, domain.StatusStep1, domain.StatusStep2}},
	{Key: "step_3_5", Label: "Steg 3-5", Probability: 60, Statuses: []domain.Status{domain.StatusStep3, domain.StatusStep4, domain.StatusStep5}},
	{Key: "step_6", Label: "Steg 6", Probability: 90, Statuses: []domain.Status{domain.StatusStep6}},
	{Key: "converted", Label: "Konvertert", Probability: 100, Statuses: []domain.Status{domain.StatusConverted}},
}

// StageValue is the computed value of one funnel stage.
type StageValue struct {
	Stage         Stage   `json:"stage"`
	ProspectCount int     `json:"prospectCount"`
	ShareCapital  float64 `json:"shareCapital"`
	StageValue    float64 `json:"stageValue"`
	WeightedValue float64 `json:"weightedValue"`
}

// Valuation is the probability-weighted pipeline value across all stages.
type Valuation struct {
	Stages            []StageValue `json:"stages"`
	TotalShareCapital float64      `json:"totalShareCapital"`
	TotalValue        float64      `json:"totalValue"`
	ProspectCount     int          `json:"prospectCount"`
}

// Valuate computes the pipeline value for the given prospects. Pure over
// its input; share capital from deleted companies is ignored.
func Valuate(prospects []domain.Prospect) Valuation {
	stageIndex := make(map[domain.Status]int, len(Stages))
	for i, stage := range Stages {
		for _, status := range stage.Statuses {
			stageIndex[status] = i
		}
	}

	capital := make([]float64, len(Stages))
	counts := make([]int, len(Stages))
	for _, prospect := range prospects {
		i, ok := stageIndex[prospect.Status]
		if !ok {
			continue
		}
		counts[i]++
		for _, company := range prospect.Companies {
			if company.DeletedDate != nil || company.ShareCapitalPaid == nil {
				continue
			}
			capital[i] += *company.ShareCapitalPaid
		}
	}

	valuation := Valuation{Stages: make([]StageValue, len(Stages))}
	for i, stage := range Stages {
		stageValue := capital[i] * rates.TaxBenefit * rates.Commission
		weighted := stageValue * stage.Probability / 100
		valuation.Stages[i] = StageValue{
			Stage:         stage,
			ProspectCount: counts[i],
			ShareCapital:  capital[i],
			StageValue:    stageValue,
			WeightedValue: weighted,
		}
		valuation.TotalShareCapital += capital[i]
		valuation.TotalValue += weighted
		valuation.ProspectCount += counts[i]
	}
	return valuation
}
