package api

import (
	"time"

	"github.com/eugenenazirov/spacing-calculator/internal/calculator"
	"github.com/eugenenazirov/spacing-calculator/internal/outputlog"
	"github.com/eugenenazirov/spacing-calculator/internal/session"
	"github.com/eugenenazirov/spacing-calculator/internal/spacer"
)

type addSpacerRequest struct {
	Name      string `json:"name"`
	Thickness string `json:"thickness"`
}

type updateSpacerRequest struct {
	Name      *string `json:"name"`
	Thickness *string `json:"thickness"`
	Enabled   *bool   `json:"enabled"`
}

type fitRequest struct {
	Target string `json:"target"`
}

type spacersResponse struct {
	Spacers   []spacer.Spacer `json:"spacers"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Message   string          `json:"message,omitempty"`
}

type spacerMutationResponse struct {
	Spacer  spacer.Spacer   `json:"spacer"`
	Spacers []spacer.Spacer `json:"spacers"`
	Message string          `json:"message,omitempty"`
}

type allocationResponse struct {
	SpacerID  uint64           `json:"spacerId"`
	Name      string           `json:"name"`
	Thickness spacer.Thickness `json:"thickness"`
	Enabled   bool             `json:"enabled"`
	Count     int              `json:"count"`
}

// fitResponse leaves every field but Target empty when the target is not computable.
type fitResponse struct {
	Target                string               `json:"target"`
	Computable            bool                 `json:"computable"`
	Requested             *spacer.Thickness    `json:"requested,omitempty"`
	Achieved              *spacer.Thickness    `json:"achieved,omitempty"`
	Residual              *spacer.Thickness    `json:"residual,omitempty"`
	TotalSpacers          int                  `json:"totalSpacers,omitempty"`
	Allocations           []allocationResponse `json:"allocations,omitempty"`
	CalculationTimeMicros int64                `json:"calculationTimeMicros,omitempty"`
}

func newFitResponse(target string, result calculator.Result) fitResponse {
	resp := fitResponse{
		Target:       target,
		Computable:   true,
		Requested:    &result.Requested,
		Achieved:     &result.Achieved,
		Residual:     &result.Residual,
		TotalSpacers: result.TotalSpacers(),
		Allocations:  make([]allocationResponse, 0, len(result.Allocations)),
	}
	for _, a := range result.Allocations {
		resp.Allocations = append(resp.Allocations, allocationResponse{
			SpacerID:  a.Spacer.ID,
			Name:      a.Spacer.Name,
			Thickness: a.Spacer.Thickness,
			Enabled:   a.Spacer.Enabled,
			Count:     a.Count,
		})
	}
	return resp
}

type outputLineResponse struct {
	Count     int              `json:"count"`
	Name      string           `json:"name"`
	Thickness spacer.Thickness `json:"thickness"`
}

type outputResponse struct {
	ID       string               `json:"id"`
	SavedAt  time.Time            `json:"savedAt"`
	Text     string               `json:"text"`
	Target   string               `json:"target,omitempty"`
	Residual *spacer.Thickness    `json:"residual,omitempty"`
	Lines    []outputLineResponse `json:"lines,omitempty"`
}

// newOutputResponse adds the parsed form of the block when it is well formed.
func newOutputResponse(e outputlog.Entry) outputResponse {
	resp := outputResponse{ID: e.ID, SavedAt: e.SavedAt, Text: e.Text}
	parsed, err := outputlog.ParseEntry(e.Text)
	if err != nil {
		return resp
	}
	resp.Target = parsed.Target
	resp.Residual = &parsed.Residual
	for _, l := range parsed.Lines {
		resp.Lines = append(resp.Lines, outputLineResponse(l))
	}
	return resp
}

type outputsResponse struct {
	Outputs []outputResponse `json:"outputs"`
}

type pagePayload struct {
	Page session.Page `json:"page"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
