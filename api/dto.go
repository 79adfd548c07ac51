/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Reference data reuses
  the factory document types so the API accepts exactly what a dataset file
  contains; results use report.ResultDocument.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Reference data:
    factory.RateJSON, factory.ProfileJSON, factory.CustomerJSON, factory.RecordJSON

  Results:
    report.ResultDocument

  Import:
    ImportSummaryDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/dataset.go: Document types
  - report/document.go: Result document
*/
package api

import "github.com/warp/introducer-commission/generic"

// ImportSummaryDTO counts what a dataset import wrote.
type ImportSummaryDTO struct {
	Rates     int `json:"rates"`
	Profiles  int `json:"profiles"`
	Customers int `json:"customers"`
	Records   int `json:"records"`
}

func importSummary(d generic.Dataset) ImportSummaryDTO {
	return ImportSummaryDTO{
		Rates:     len(d.Rates),
		Profiles:  len(d.Profiles),
		Customers: len(d.Customers),
		Records:   len(d.Records),
	}
}

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Month       string `json:"month"` // YYYY-MM the dataset covers
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse is returned after a scenario is loaded.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO      `json:"scenario"`
	Imported ImportSummaryDTO `json:"imported"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
