package service

import "strings"

// NormalizeJobInput trims string fields and coalesces empty optional values
// to nil. Applied once at the input boundary so update paths never see
// empty-string sentinels.
func NormalizeJobInput(in JobInput) JobInput {
	out := in
	out.ID = strings.TrimSpace(in.ID)
	out.Company = strings.TrimSpace(in.Company)
	out.Role = strings.TrimSpace(in.Role)
	out.StartDate = strings.TrimSpace(in.StartDate)
	out.EndDate = normalizeOptional(in.EndDate)
	out.LogoURL = normalizeOptional(in.LogoURL)
	out.Website = normalizeOptional(in.Website)
	return out
}

// NormalizeHighlightInput trims string fields, coalesces empty optionals to
// nil and replaces nil slices with empty ones.
func NormalizeHighlightInput(in HighlightInput) HighlightInput {
	out := in
	out.ID = strings.TrimSpace(in.ID)
	out.JobID = normalizeOptional(in.JobID)
	out.Title = strings.TrimSpace(in.Title)
	out.Content = strings.TrimSpace(in.Content)
	out.StartDate = strings.TrimSpace(in.StartDate)
	out.EndDate = normalizeOptional(in.EndDate)
	out.Domains = normalizeList(in.Domains)
	out.Skills = normalizeList(in.Skills)
	out.Keywords = normalizeList(in.Keywords)
	if out.Metrics == nil {
		out.Metrics = []Metric{}
	}
	return out
}

// NormalizeProfile trims the profile fields and coalesces empty optionals.
func NormalizeProfile(p Profile) Profile {
	out := p
	out.FullName = strings.TrimSpace(p.FullName)
	out.Headline = normalizeOptional(p.Headline)
	out.Email = normalizeOptional(p.Email)
	out.Location = normalizeOptional(p.Location)
	out.Links = normalizeList(p.Links)
	return out
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
