// Package models defines the domain types shared by the taxonomy server and its clients.
package models

import "time"

// RawNode is one node of the tree document served to clients.
// A nil or empty Children slice denotes a leaf.
type RawNode struct {
	Name     string     `json:"name" yaml:"name"`
	NodeID   string     `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Children []*RawNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Category is one entry of an ontology source file.
type Category struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	CitationURI  string         `json:"citation_uri,omitempty" yaml:"citation_uri,omitempty"`
	FAQ          string         `json:"faq,omitempty" yaml:"faq,omitempty"`
	ChildIDs     []string       `json:"child_ids,omitempty" yaml:"child_ids,omitempty"`
	Restrictions []string       `json:"restrictions,omitempty" yaml:"restrictions,omitempty"`
	Examples     []SoundExample `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// SoundExample is a reference recording shown with a category. Duration is in
// seconds; RMS and Peak are the analysed loudness of the clip, zero when unknown.
type SoundExample struct {
	SoundURL       string  `json:"sound_url" yaml:"sound_url"`
	SpectrogramURL string  `json:"spectrogram_url,omitempty" yaml:"spectrogram_url,omitempty"`
	WaveformURL    string  `json:"waveform_url,omitempty" yaml:"waveform_url,omitempty"`
	Duration       float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	RMS            float64 `json:"rms,omitempty" yaml:"rms,omitempty"`
	Peak           float64 `json:"peak,omitempty" yaml:"peak,omitempty"`
}

// Omitted reports whether the category carries the "omitted" restriction.
func (c Category) Omitted() bool {
	for _, r := range c.Restrictions {
		if r == "omitted" {
			return true
		}
	}
	return false
}

// NodeInfo is the detail record of one tree occurrence of a category.
type NodeInfo struct {
	BigID       string         `json:"big_id"`
	CategoryID  string         `json:"category_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CitationURI string         `json:"citation_uri,omitempty"`
	FAQ         string         `json:"faq,omitempty"`
	Omitted     bool           `json:"omitted"`
	Depth       int            `json:"depth"`
	Children    []string       `json:"children"`
	Examples    []SoundExample `json:"examples"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SourceMetadata describes the ontology source file currently on disk.
type SourceMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
