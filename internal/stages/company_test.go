package stages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

type fakeOpLog struct {
	errorKinds []string
}

func (l *fakeOpLog) LogOperation(_, _, _, _, _ string, _ time.Duration) {}
func (l *fakeOpLog) LogError(_, _, kind, _, _ string) {
	l.errorKinds = append(l.errorKinds, kind)
}

func TestCompanyNameFromTitleStripsSuffix(t *testing.T) {
	t.Parallel()

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(`<html><head><title>Acme Co - Home</title></head></html>`, "https://acme.com", &rec)
	require.Equal(t, "Acme Co", rec.Name)
}

func TestCompanyNameLaterSourcesWin(t *testing.T) {
	t.Parallel()

	content := `<html><head>
<title>Acme Co - Official Website</title>
<script type="application/ld+json">{"organization": {"name": "Acme Corporation"}}</script>
<meta property="og:site_name" content="Acme Inc">
</head></html>`

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(content, "https://acme.com", &rec)
	// title, then structured data, then site-name meta: last writer wins.
	require.Equal(t, "Acme Inc", rec.Name)
}

func TestCompanyDescriptionLongerWins(t *testing.T) {
	t.Parallel()

	content := `<html><head>
<title>Acme</title>
<meta name="description" content="Short blurb.">
<meta property="og:description" content="A considerably longer description of what Acme Co actually does.">
</head></html>`

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(content, "https://acme.com", &rec)
	require.Equal(t, "A considerably longer description of what Acme Co actually does.", rec.Description)
}

func TestCompanyDescriptionKeepsLongerMeta(t *testing.T) {
	t.Parallel()

	content := `<html><head>
<title>Acme</title>
<meta name="description" content="A considerably longer description of what Acme Co actually does.">
<meta property="og:description" content="Short.">
</head></html>`

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(content, "https://acme.com", &rec)
	require.Equal(t, "A considerably longer description of what Acme Co actually does.", rec.Description)
}

func TestCompanyAboutSectionUsedWhenLonger(t *testing.T) {
	t.Parallel()

	content := `<html><head><title>Acme</title>
<meta name="description" content="Tiny.">
</head><body>
<div class="about">We are Acme, a family business making industrial widgets since 1952 in Springfield.</div>
</body></html>`

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(content, "https://acme.com", &rec)
	require.Contains(t, rec.Description, "family business making industrial widgets")
}

func TestCompanyTypeFirstMatchWins(t *testing.T) {
	t.Parallel()

	content := `<html><head><title>Acme</title>
<meta name="description" content="Acme is a software company serving the manufacturing sector.">
</head></html>`

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(content, "https://acme.com", &rec)
	// Both Technology and Manufacturing keywords match; table order decides.
	require.Equal(t, "Technology", rec.Type)
}

func TestCompanyTypeFallsBackToContent(t *testing.T) {
	t.Parallel()

	content := `<html><head><title>Acme</title></head>
<body>Fresh tofu and plant-based meals delivered daily.</body></html>`

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(content, "https://acme.com", &rec)
	require.Equal(t, "Plant-based Foods", rec.Type)
}

func TestCompanyLogoResolvedAgainstPage(t *testing.T) {
	t.Parallel()

	content := `<html><head><title>Acme</title></head>
<body><img class="site-logo" src="/assets/logo.png" alt="Acme"></body></html>`

	s := NewCompanyStage(&fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(content, "https://acme.com/about", &rec)
	require.Equal(t, "https://acme.com/assets/logo.png", rec.Logo)
}
