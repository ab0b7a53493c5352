package models

import "slices"

type ResumeSection struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights,omitempty"`
}

// ResumeInsights is the structured analysis of a resume text.
type ResumeInsights struct {
	Headline         string              `json:"headline,omitempty"`
	Overview         string              `json:"overview"`
	Insights         []string            `json:"insights,omitempty"`
	SkillsByCategory map[string][]string `json:"skills_by_category,omitempty"`
	Confidence       *float64            `json:"confidence,omitempty"`
	Skills           []string            `json:"skills"`
	Highlights       []string            `json:"highlights"`
	Sections         []ResumeSection     `json:"sections,omitempty"`
	Language         string              `json:"language"`
}

// Clone returns a deep copy, so cached insights never share slices or maps
// with a caller.
func (r *ResumeInsights) Clone() *ResumeInsights {
	out := *r
	out.Insights = slices.Clone(r.Insights)
	out.Skills = slices.Clone(r.Skills)
	out.Highlights = slices.Clone(r.Highlights)
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	if r.SkillsByCategory != nil {
		out.SkillsByCategory = make(map[string][]string, len(r.SkillsByCategory))
		for k, v := range r.SkillsByCategory {
			out.SkillsByCategory[k] = slices.Clone(v)
		}
	}
	if r.Sections != nil {
		out.Sections = make([]ResumeSection, len(r.Sections))
		for i, s := range r.Sections {
			s.Highlights = slices.Clone(s.Highlights)
			out.Sections[i] = s
		}
	}
	return &out
}
