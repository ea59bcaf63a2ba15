package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeJobInputCoalescesEmptyOptionals(t *testing.T) {
	in := JobInput{
		ID:        "  job-1 ",
		Company:   " Acme ",
		Role:      "Engineer",
		StartDate: " 2020-01 ",
		EndDate:   strPtr("   "),
		Website:   strPtr(" https://acme.example "),
	}

	out := NormalizeJobInput(in)
	require.Equal(t, "job-1", out.ID)
	require.Equal(t, "Acme", out.Company)
	require.Equal(t, "2020-01", out.StartDate)
	require.Nil(t, out.EndDate, "blank optional becomes nil")
	require.NotNil(t, out.Website)
	require.Equal(t, "https://acme.example", *out.Website)
	require.Nil(t, out.LogoURL)
}

func TestNormalizeHighlightInputLists(t *testing.T) {
	in := HighlightInput{
		Title:   " Shipped search ",
		Content: "content",
		JobID:   strPtr(""),
		Domains: []string{" search ", "", "infra"},
		Skills:  nil,
	}

	out := NormalizeHighlightInput(in)
	require.Equal(t, "Shipped search", out.Title)
	require.Nil(t, out.JobID)
	require.Equal(t, []string{"search", "infra"}, out.Domains)
	require.NotNil(t, out.Skills)
	require.Empty(t, out.Skills)
	require.NotNil(t, out.Metrics)
}

func TestNormalizeProfile(t *testing.T) {
	p := NormalizeProfile(Profile{
		FullName: "  Jamie Doe ",
		Headline: strPtr(" "),
		Email:    strPtr("jamie@example.com"),
		Links:    []string{"", " https://example.com "},
	})

	require.Equal(t, "Jamie Doe", p.FullName)
	require.Nil(t, p.Headline)
	require.NotNil(t, p.Email)
	require.Equal(t, []string{"https://example.com"}, p.Links)
}
