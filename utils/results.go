package utils

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Run is the outcome of one GenerateProcess call together with its inputs.
type Run struct {
	XMLName  xml.Name `json:"-" xml:"PlaybookRun"`
	ID       string   `json:"id" xml:"id,attr"`
	VideoURI string   `json:"videoUri" xml:"VideoURI"`
	Model    string   `json:"model" xml:"Model"`
	// CacheRequested records the request flag. The video may still have been
	// sent uncached when the service rejected the cache.
	CacheRequested bool      `json:"cacheRequested" xml:"CacheRequested"`
	CreatedAt      time.Time `json:"createdAt" xml:"CreatedAt"`
	Results        []Result  `json:"results" xml:"Playbooks>Playbook"`
	// BestIndex is the 1-based number of the best playbook, 0 when there is none.
	BestIndex int `json:"bestIndex" xml:"BestPlaybookIndex"`
}

// NewRun wraps results in a Run with a fresh id.
func NewRun(req Request, results []Result) Run {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	return Run{
		ID:             uuid.NewString(),
		VideoURI:       req.VideoURI,
		Model:          model,
		CacheRequested: req.Cache,
		CreatedAt:      time.Now().UTC(),
		Results:        results,
		BestIndex:      Best(results) + 1,
	}
}

// WriteXMLFile writes run to outputXML, replacing any existing file.
func WriteXMLFile(outputXML string, run Run) error {
	file, err := os.Create(outputXML)
	if err != nil {
		return fmt.Errorf("failed to create XML file '%s': %w", outputXML, err)
	}
	defer file.Close()

	if _, err := file.WriteString(xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header to '%s': %w", outputXML, err)
	}
	encoder := xml.NewEncoder(file)
	encoder.Indent("", "  ")
	if err := encoder.Encode(run); err != nil {
		return fmt.Errorf("failed to encode XML to '%s': %w", outputXML, err)
	}

	// Make sure to flush the encoder
	if err := encoder.Flush(); err != nil {
		return fmt.Errorf("failed to flush XML encoder: %w", err)
	}
	return nil
}

// ReadXMLFile loads a run previously written by WriteXMLFile.
func ReadXMLFile(inputXML string) (Run, error) {
	file, err := os.Open(inputXML)
	if err != nil {
		return Run{}, fmt.Errorf("failed to open XML file: %w", err)
	}
	defer file.Close()

	var run Run
	if err := xml.NewDecoder(file).Decode(&run); err != nil {
		return Run{}, fmt.Errorf("failed to decode XML: %w", err)
	}
	return run, nil
}
