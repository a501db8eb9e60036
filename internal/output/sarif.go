package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/copyedit/internal/diff"
	"github.com/dshills/copyedit/internal/pipeline"
)

// SARIFWriter outputs fired rules in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *pipeline.Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
	Fixes     []sarifFix      `json:"fixes,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

// ruleLevel is the SARIF level for every copy-edit rule: the edits are
// already applied, so they are informational.
const ruleLevel = "note"

func buildSARIF(report *pipeline.Report) sarifLog {
	results := []sarifResult{}
	var rules []sarifRule
	seen := make(map[string]bool)

	for _, f := range report.Files {
		r := f.Result
		if r == nil {
			continue
		}
		region := changedRegion(r.Rows)
		for i, id := range r.Fired {
			reason := ""
			if i < len(r.Reasons) {
				reason = r.Reasons[i]
			}
			ruleID := generateRuleID(id)
			if !seen[ruleID] {
				seen[ruleID] = true
				rules = append(rules, sarifRule{
					ID:               ruleID,
					Name:             id,
					ShortDescription: sarifMessage{Text: reason},
					DefaultConfig:    sarifDefaultConfig{Level: ruleLevel},
				})
			}
			results = append(results, sarifResult{
				RuleID:  ruleID,
				Level:   ruleLevel,
				Message: sarifMessage{Text: reason},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: f.Source},
						Region:           region,
					},
				}},
				Fixes: []sarifFix{{Description: sarifMessage{Text: "run copyedit fix --write"}}},
			})
		}
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "copyedit",
						Version:        report.Version,
						InformationURI: "https://github.com/dshills/copyedit",
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}
}

// changedRegion spans the old-side lines touched by the diff, or nil when
// the body is unchanged.
func changedRegion(rows []diff.Row) *sarifRegion {
	var reg *sarifRegion
	for _, row := range rows {
		if row.Tag == diff.Common {
			continue
		}
		line := row.OldLine
		if line == 0 {
			line = row.NewLine
		}
		if reg == nil {
			reg = &sarifRegion{StartLine: line, EndLine: line}
			continue
		}
		reg.StartLine = min(reg.StartLine, line)
		reg.EndLine = max(reg.EndLine, line)
	}
	return reg
}

// generateRuleID namespaces a rule id for SARIF consumers.
func generateRuleID(id string) string {
	return "copyedit/" + id
}
