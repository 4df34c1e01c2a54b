// Package report turns a model answer written in the working language into
// the evidence-annotated report text: it finds the disease-risk markers,
// extracts the numbered recommendations of each marker, looks up literature
// for every recommendation and reassembles the document.
package report

import (
	"context"
	"log/slog"
)

// Result is the outcome of processing one model answer.
type Result struct {
	Text          string        `json:"text"`
	IsFinalReport bool          `json:"is_final_report"`
	Markers       []MarkerMatch `json:"markers,omitempty"`
}

// Pipeline wires the marker table to an Enricher.
type Pipeline struct {
	Markers  []Marker
	Enricher *Enricher
}

// NewPipeline returns a Pipeline over markers; a nil or empty table selects
// DefaultMarkers.
func NewPipeline(markers []Marker, enricher *Enricher) *Pipeline {
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	return &Pipeline{Markers: markers, Enricher: enricher}
}

// IsFinalReport reports whether text contains at least one marker.
func (p *Pipeline) IsFinalReport(text string) bool {
	return len(FindMarkers(text, p.Markers)) > 0
}

// Process runs the full pipeline. Text without markers is returned unchanged
// with IsFinalReport false.
func (p *Pipeline) Process(ctx context.Context, text string) Result {
	matches := FindMarkers(text, p.Markers)
	if len(matches) == 0 {
		return Result{Text: text}
	}
	doc := Parse(text, matches)
	segments := make([]EnrichedSegment, 0, len(doc.Segments))
	for _, seg := range doc.Segments {
		segments = append(segments, EnrichedSegment{
			Match: seg.Match,
			Items: p.Enricher.Enrich(ctx, seg.Match.TopicKey, seg.Items),
		})
	}
	slog.Info("final report assembled", "markers", len(matches))
	return Result{
		Text:          Assemble(doc.Prefix, segments, doc.Suffix),
		IsFinalReport: true,
		Markers:       matches,
	}
}
